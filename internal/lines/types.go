package lines

// Role marks which side of price a line or zone defends
type Role string

const (
	RoleSupport    Role = "support"
	RoleResistance Role = "resistance"
)

// TrendLine is a validated line through two pivots, expressed both as
// endpoint pairs (bar index, price) and slope/intercept form
type TrendLine struct {
	X1         int     `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         int     `json:"x2"`
	Y2         float64 `json:"y2"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	Touches    int     `json:"touches"`
	Violations int     `json:"violations"`
	Score      float64 `json:"score"`
	Role       Role    `json:"role"`
}

// ValueAt returns the line's price at a bar index
func (tl TrendLine) ValueAt(x int) float64 {
	return tl.Slope*float64(x) + tl.Intercept
}

// ChannelType classifies a channel's direction
type ChannelType string

const (
	ChannelAscending  ChannelType = "ascending"
	ChannelDescending ChannelType = "descending"
	ChannelHorizontal ChannelType = "horizontal"
)

// Channel is a pair of roughly parallel trendlines bounding price
type Channel struct {
	Upper TrendLine   `json:"upper"`
	Lower TrendLine   `json:"lower"`
	Type  ChannelType `json:"type"`
}

// ZoneSource tags who produced a zone
type ZoneSource string

const (
	ZoneSourceVolume ZoneSource = "volume"
	ZoneSourceAI     ZoneSource = "ai"
)

// Zone is a contiguous high-interest price band
type Zone struct {
	PriceMin float64    `json:"price_min"`
	PriceMax float64    `json:"price_max"`
	Strength float64    `json:"strength"`
	Role     Role       `json:"role"`
	Source   ZoneSource `json:"source"`
}

// Annotations is the full set of geometric chart annotations for one call
type Annotations struct {
	TrendLines []TrendLine `json:"trendlines"`
	Channels   []Channel   `json:"channels"`
	Zones      []Zone      `json:"zones"`
}
