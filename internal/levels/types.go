package levels

// CandidateSource identifies which detection lens proposed a candidate
type CandidateSource string

const (
	SourcePOC           CandidateSource = "poc"
	SourceValueAreaHigh CandidateSource = "value_area_high"
	SourceValueAreaLow  CandidateSource = "value_area_low"
	SourceProfilePeak   CandidateSource = "volume_profile_peak"
	SourceFractal       CandidateSource = "fractal"
	SourceOrderFlow     CandidateSource = "order_flow"
	SourceSwing         CandidateSource = "swing"
	SourceVolumeSpike   CandidateSource = "volume_spike"
	SourceVWAPBand      CandidateSource = "vwap_band"
)

// Side distinguishes levels below price (support) from levels above (resistance)
type Side string

const (
	SideSupport    Side = "support"
	SideResistance Side = "resistance"
)

// Candidate is a raw level proposal from a single lens. Weight is the
// source-assigned prior in [0, 1.2].
type Candidate struct {
	Price  float64
	Weight float64
	Source CandidateSource
}

// Level is a merged, scored key level
type Level struct {
	Price    float64 `json:"price"`
	Strength float64 `json:"strength"`
}
