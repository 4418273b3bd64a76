package levels

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"level-engine/internal/market"
)

// Outcome distinguishes a usable result from a deliberately empty one
type Outcome int

const (
	// OutcomeOK means levels were computed
	OutcomeOK Outcome = iota
	// OutcomeInsufficient means the candle series was too short to analyze
	OutcomeInsufficient
)

// ResultSource names which pipeline produced the final levels
type ResultSource string

const (
	SourceQuant ResultSource = "QUANT"
	SourceAILed ResultSource = "AI"
)

// Metadata carries scoring context alongside the levels
type Metadata struct {
	Source              ResultSource `json:"source"`
	AIConfidence        float64      `json:"ai_confidence"`
	Tolerances          Tolerances   `json:"tolerances"`
	SupportStrengths    []float64    `json:"support_strengths"`
	ResistanceStrengths []float64    `json:"resistance_strengths"`
}

// Result is the outcome of one FindKeyLevels call
type Result struct {
	Outcome     Outcome  `json:"-"`
	Supports    []Level  `json:"supports"`
	Resistances []Level  `json:"resistances"`
	Metadata    Metadata `json:"metadata"`
}

// Input bundles everything one detection call reads. OrderBook, MarketCap
// and the AI level hints are optional.
type Input struct {
	Candles       []market.Candle
	CurrentPrice  float64
	OrderBook     *market.OrderBook
	MarketCap     float64
	AISupports    []float64
	AIResistances []float64
}

// Engine is the key-level detector. It holds no mutable state between
// calls; FindKeyLevels is pure and safe for concurrent use across symbols.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a level detection engine
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "LevelEngine").Logger(),
	}
}

// FindKeyLevels runs the full detection pipeline: adaptive parameters,
// candidate generation, merging and AI arbitration. Both sides of the result
// are guaranteed non-empty when the outcome is OK.
func (e *Engine) FindKeyLevels(in Input) Result {
	if len(in.Candles) < MinBars || in.CurrentPrice <= 0 {
		return Result{Outcome: OutcomeInsufficient}
	}

	params := SelectAdaptiveParams(in.CurrentPrice, in.MarketCap, in.Candles)
	tol := DynamicTolerances(in.Candles, in.CurrentPrice)
	profile := BuildVolumeProfile(in.Candles, params.VolumeBins)
	merger := NewMerger(tol, profile)

	result := Result{
		Outcome: OutcomeOK,
		Metadata: Metadata{
			Source:     SourceQuant,
			Tolerances: tol,
		},
	}

	if len(in.AISupports) > 0 || len(in.AIResistances) > 0 {
		validation := NewAIValidator(merger, e.logger).Validate(
			in.AISupports, in.AIResistances, in.Candles, in.CurrentPrice)
		result.Metadata.AIConfidence = validation.Confidence

		if validation.Led {
			result.Metadata.Source = SourceAILed
			result.Supports = validation.Supports
			result.Resistances = validation.Resistances
			e.supplementPOC(&result, profile, tol, merger, in)
		}
	}

	if result.Metadata.Source == SourceQuant {
		generator := NewGenerator(params, tol, e.logger)
		supCands, resCands := generator.Generate(in.Candles, in.CurrentPrice, in.OrderBook, profile)
		result.Supports = merger.Merge(supCands, in.Candles, in.CurrentPrice, SideSupport)
		result.Resistances = merger.Merge(resCands, in.Candles, in.CurrentPrice, SideResistance)
	}

	// Fallback guarantee: neither side is ever empty
	if len(result.Supports) == 0 {
		result.Supports = []Level{merger.FallbackLevel(in.Candles, in.CurrentPrice, SideSupport)}
	}
	if len(result.Resistances) == 0 {
		result.Resistances = []Level{merger.FallbackLevel(in.Candles, in.CurrentPrice, SideResistance)}
	}

	result.Metadata.SupportStrengths = strengths(result.Supports)
	result.Metadata.ResistanceStrengths = strengths(result.Resistances)

	e.logger.Debug().
		Str("source", string(result.Metadata.Source)).
		Int("supports", len(result.Supports)).
		Int("resistances", len(result.Resistances)).
		Msg("key levels computed")

	return result
}

// supplementPOC adds the POC to an AI-led result when it is not already
// within MinDistance of any validated AI level
func (e *Engine) supplementPOC(result *Result, profile *VolumeProfile, tol Tolerances, merger *Merger, in Input) {
	if profile == nil {
		return
	}

	poc := profile.POC().Center()
	minDist := tol.MinDistance(in.CurrentPrice)

	for _, lvl := range result.Supports {
		if math.Abs(lvl.Price-poc) < minDist {
			return
		}
	}
	for _, lvl := range result.Resistances {
		if math.Abs(lvl.Price-poc) < minDist {
			return
		}
	}

	if poc <= in.CurrentPrice-minDist {
		result.Supports = appendCapped(result.Supports, Level{
			Price:    poc,
			Strength: merger.Strength(poc, in.Candles, in.CurrentPrice, SideSupport),
		})
	} else if poc >= in.CurrentPrice+minDist {
		result.Resistances = appendCapped(result.Resistances, Level{
			Price:    poc,
			Strength: merger.Strength(poc, in.Candles, in.CurrentPrice, SideResistance),
		})
	}
}

func appendCapped(levels []Level, lvl Level) []Level {
	levels = append(levels, lvl)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Strength > levels[j].Strength })
	if len(levels) > MaxLevelsPerSide {
		levels = levels[:MaxLevelsPerSide]
	}
	return levels
}

func strengths(levels []Level) []float64 {
	out := make([]float64, len(levels))
	for i, lvl := range levels {
		out[i] = lvl.Strength
	}
	return out
}
