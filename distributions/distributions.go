// Package distributions samples arrival counts, inter-arrival gaps, client
// type, speed class, patience, service noise and movement delay from
// distributions parameterized by day-of-week and hour-of-day. Every
// function here is pure given its *rand.Rand and never panics: sampling is
// total, always returning a usable value rather than an error. Callers
// inject the random source so a (seed, config) pair reproduces
// deterministically.
package distributions

import (
	"math"
	"math/rand"
)

// Day is a day of the week.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func (d Day) String() string {
	names := [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	if d < Monday || d > Sunday {
		return "monday"
	}
	return names[d]
}

// ParseDay maps a lowercase day label to a Day, defaulting to Monday for
// anything unrecognized; callers validating config input should reject
// unknown labels themselves (see session.ConfigError).
func ParseDay(label string) (Day, bool) {
	for d := Monday; d <= Sunday; d++ {
		if d.String() == label {
			return d, true
		}
	}
	return Monday, false
}

// ClientType is the shopper archetype, driving basket size and move delay.
type ClientType int

const (
	Solo ClientType = iota
	Familia
)

func (t ClientType) String() string {
	if t == Familia {
		return "familia"
	}
	return "solo"
}

// SpeedClass is a shopper's movement speed tier.
type SpeedClass int

const (
	Fast SpeedClass = iota
	Normal
	Calm
)

func (s SpeedClass) String() string {
	switch s {
	case Fast:
		return "fast"
	case Calm:
		return "calm"
	default:
		return "normal"
	}
}

var dayFactor = map[Day]float64{
	Monday:    0.6,
	Tuesday:   0.7,
	Wednesday: 0.8,
	Thursday:  1.0,
	Friday:    1.3,
	Saturday:  1.5,
	Sunday:    1.2,
}

func hourFactor(hour int) float64 {
	switch {
	case hour >= 9 && hour < 12:
		return 0.8
	case hour >= 12 && hour < 15:
		return 1.5
	case hour >= 15 && hour < 18:
		return 1.2
	default:
		return 0.9
	}
}

const baseArrivalRate = 10.0

// ArrivalRate returns the Poisson rate lambda for the given day/hour, used
// both by ArrivalsPerHour and by callers that want the raw rate (e.g. to
// derive an interarrival-ticks scale).
func ArrivalRate(day Day, hour int) float64 {
	return baseArrivalRate * dayFactor[day] * hourFactor(hour)
}

// ArrivalsPerHour samples a non-negative Poisson(lambda) count of arrivals
// for the given day and hour.
func ArrivalsPerHour(rng *rand.Rand, day Day, hour int) int {
	return poisson(rng, ArrivalRate(day, hour))
}

// poisson draws from Poisson(lambda) via Knuth's multiplication algorithm.
// Adequate for the small-to-moderate rates this domain produces (lambda is
// bounded well under 100); a large-lambda fast path is unnecessary here.
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// InterarrivalTicks samples a positive number of ticks until the next
// arrival, exponential with rate lambda, rounded up and floored at 1.
func InterarrivalTicks(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		lambda = 1
	}
	// rng.ExpFloat64() is standard-rate (mean 1); scale by 1/lambda for the
	// target mean, matching exponential's inverse-rate convention.
	value := rng.ExpFloat64() / lambda
	ticks := int(math.Ceil(value))
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// SampleClientType samples Solo vs Familia for the given day/hour: base
// 0.3 probability of Familia, +0.4 on weekends, +0.2 in the 16-20 evening
// window, -0.2 in the 9-11 morning window, clamped to [0,1].
func SampleClientType(rng *rand.Rand, day Day, hour int) ClientType {
	p := 0.3
	if day == Saturday || day == Sunday {
		p += 0.4
	}
	if hour >= 16 && hour <= 20 {
		p += 0.2
	}
	if hour >= 9 && hour <= 11 {
		p -= 0.2
	}
	p = clamp01(p)
	if rng.Float64() < p {
		return Familia
	}
	return Solo
}

// SampleSpeedClass samples Fast/Normal/Calm for the given day/hour/type
// from a type-conditional base distribution, adjusted by day and hour and
// renormalized.
func SampleSpeedClass(rng *rand.Rand, day Day, hour int, clientType ClientType) SpeedClass {
	var probs map[SpeedClass]float64
	if clientType == Familia {
		probs = map[SpeedClass]float64{Fast: 0.1, Normal: 0.5, Calm: 0.2}
	} else {
		probs = map[SpeedClass]float64{Fast: 0.4, Normal: 0.5, Calm: 0.1}
	}

	if day == Saturday || day == Sunday {
		probs[Calm] += 0.2
		probs[Fast] -= 0.1
	}
	if hour >= 9 && hour <= 11 {
		probs[Fast] += 0.2
		probs[Calm] -= 0.1
	}

	total := 0.0
	for _, p := range probs {
		if p < 0 {
			p = 0
		}
		total += p
	}
	if total <= 0 {
		return Normal
	}

	order := [...]SpeedClass{Fast, Normal, Calm}
	r := rng.Float64() * total
	cum := 0.0
	for _, sc := range order {
		p := probs[sc]
		if p < 0 {
			p = 0
		}
		cum += p
		if r <= cum {
			return sc
		}
	}
	return Calm
}

// SamplePatience draws from Beta(2, 5), producing values skewed toward
// impatience (low values more likely).
func SamplePatience(rng *rand.Rand) float64 {
	return sampleBeta(rng, 2, 5)
}

// sampleBeta draws from Beta(alpha, beta) via two independent Gamma draws:
// X ~ Gamma(alpha, 1), Y ~ Gamma(beta, 1), X/(X+Y) ~ Beta(alpha, beta). No
// example repository in the retrieved corpus carries a statistics library
// (gonum or otherwise), so this and sampleGamma are hand-rolled atop
// math/rand; see DESIGN.md.
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	x := sampleGamma(rng, alpha)
	y := sampleGamma(rng, beta)
	if x+y == 0 {
		return 0
	}
	return x / (x + y)
}

// sampleGamma draws from Gamma(shape, 1) via Marsaglia & Tsang's method for
// shape >= 1, boosting smaller shapes by one unit-exponential factor.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// SampleServiceNoise draws an int clipped to [0,3], Normal(1, 0.5) —
// per-item checkout service time jitter.
func SampleServiceNoise(rng *rand.Rand) int {
	v := rng.NormFloat64()*0.5 + 1
	return clampInt(int(math.Round(v)), 0, 3)
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

var moveDelayRange = map[SpeedClass][2]float64{
	Fast:   {1, 2},
	Normal: {2, 4},
	Calm:   {4, 5},
}

// SampleMoveDelay draws the number of ticks between movement steps: Normal
// around the midpoint of the per-speed range, with familia shoppers
// penalized 1.3x on the mean and 1.2x on the spread. Clipped to [1,8].
func SampleMoveDelay(rng *rand.Rand, clientType ClientType, speed SpeedClass) int {
	bounds, ok := moveDelayRange[speed]
	if !ok {
		bounds = moveDelayRange[Normal]
	}
	low, high := bounds[0], bounds[1]
	mean := (low + high) / 2
	std := (high - low) / 4

	if clientType == Familia {
		mean *= 1.3
		std *= 1.2
	}

	v := rng.NormFloat64()*std + mean
	return clampInt(int(math.Round(v)), 1, 8)
}
