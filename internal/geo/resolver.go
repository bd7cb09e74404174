// internal/geo/resolver.go
// Place name resolution and great-circle distance.

package geo

import (
	"errors"
	"math"
	"strings"
)

// ErrLocationNotFound means a place label is not in the lookup table.
// Callers treat this as "user cannot be geographically matched", not as a failure.
var ErrLocationNotFound = errors.New("location not found")

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolver resolves a coarse place label to coordinates. The default
// implementation is a static table; a real geocoder can be substituted
// without touching the matching logic.
type Resolver interface {
	Resolve(label string) (Coordinate, error)
}

// DistanceKm computes the great-circle distance between two coordinates
// using the haversine formula.
func DistanceKm(a, b Coordinate) float64 {
	const earthRadius = 6371 // km

	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// StaticResolver resolves labels against a fixed table of known places.
type StaticResolver struct {
	places map[string]Coordinate
}

// NewStaticResolver creates a resolver over the built-in place table.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{places: dutchPlaces}
}

// NewStaticResolverWithPlaces creates a resolver over a custom table.
// Keys are matched case-insensitively.
func NewStaticResolverWithPlaces(places map[string]Coordinate) *StaticResolver {
	normalized := make(map[string]Coordinate, len(places))
	for label, coord := range places {
		normalized[strings.ToLower(strings.TrimSpace(label))] = coord
	}
	return &StaticResolver{places: normalized}
}

// Resolve looks up a place label. Matching is case-insensitive.
func (r *StaticResolver) Resolve(label string) (Coordinate, error) {
	coord, ok := r.places[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return Coordinate{}, ErrLocationNotFound
	}
	return coord, nil
}

// dutchPlaces covers the municipalities the platform launched in.
var dutchPlaces = map[string]Coordinate{
	"amsterdam":        {Lat: 52.3676, Lng: 4.9041},
	"rotterdam":        {Lat: 51.9244, Lng: 4.4777},
	"den haag":         {Lat: 52.0705, Lng: 4.3007},
	"utrecht":          {Lat: 52.0907, Lng: 5.1214},
	"eindhoven":        {Lat: 51.4416, Lng: 5.4697},
	"groningen":        {Lat: 53.2194, Lng: 6.5665},
	"tilburg":          {Lat: 51.5555, Lng: 5.0913},
	"almere":           {Lat: 52.3508, Lng: 5.2647},
	"breda":            {Lat: 51.5719, Lng: 4.7683},
	"nijmegen":         {Lat: 51.8126, Lng: 5.8372},
	"apeldoorn":        {Lat: 52.2112, Lng: 5.9699},
	"haarlem":          {Lat: 52.3874, Lng: 4.6462},
	"arnhem":           {Lat: 51.9851, Lng: 5.8987},
	"enschede":         {Lat: 52.2215, Lng: 6.8937},
	"amersfoort":       {Lat: 52.1561, Lng: 5.3878},
	"zaandam":          {Lat: 52.4420, Lng: 4.8292},
	"zwolle":           {Lat: 52.5168, Lng: 6.0830},
	"leiden":           {Lat: 52.1601, Lng: 4.4970},
	"maastricht":       {Lat: 50.8514, Lng: 5.6910},
	"dordrecht":        {Lat: 51.8133, Lng: 4.6901},
	"ede":              {Lat: 52.0468, Lng: 5.6640},
	"leeuwarden":       {Lat: 53.2012, Lng: 5.7999},
	"alphen aan den rijn": {Lat: 52.1293, Lng: 4.6576},
	"alkmaar":          {Lat: 52.6324, Lng: 4.7534},
	"delft":            {Lat: 52.0116, Lng: 4.3571},
	"venlo":            {Lat: 51.3704, Lng: 6.1724},
	"deventer":         {Lat: 52.2551, Lng: 6.1639},
	"amstelveen":       {Lat: 52.3114, Lng: 4.8701},
	"hilversum":        {Lat: 52.2292, Lng: 5.1669},
	"hoofddorp":        {Lat: 52.3061, Lng: 4.6907},
	"purmerend":        {Lat: 52.5053, Lng: 4.9592},
	"gouda":            {Lat: 52.0115, Lng: 4.7104},
	"zeist":            {Lat: 52.0906, Lng: 5.2333},
	"nieuwegein":       {Lat: 52.0298, Lng: 5.0803},
	"weesp":            {Lat: 52.3076, Lng: 5.0419},
}
