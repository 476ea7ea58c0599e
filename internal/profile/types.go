package profile

// Profile is the farm's standing context: where it is, what it grows and how
// the farmer prefers to treat it. Requests fall back to it for fields they
// leave empty.
type Profile struct {
	FarmName      string   `json:"farm_name,omitempty"`
	Place         string   `json:"place,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	Crops         []string `json:"crops,omitempty"`
	AreaHectares  float64  `json:"area_hectares,omitempty"`
	PreferOrganic bool     `json:"prefer_organic"`
}

// HasLocation reports whether a weather lookup can be made from the profile.
func (p Profile) HasLocation() bool {
	return p.Place != "" || (p.Lat != nil && p.Lon != nil)
}

// PrimaryCrop returns the crop when exactly one is grown.
func (p Profile) PrimaryCrop() string {
	if len(p.Crops) == 1 {
		return p.Crops[0]
	}
	return ""
}
