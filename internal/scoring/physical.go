package scoring

import "math"

// BMI derives body-mass index from height in centimetres and weight in kilograms.
func BMI(heightCM, weightKG float64) (float64, bool) {
	if heightCM <= 0 || weightKG <= 0 {
		return 0, false
	}
	m := heightCM / 100
	return weightKG / (m * m), true
}

// BMIScore maps a BMI onto 0-100. age may be nil when unknown; percentile is
// the BMI-for-age percentile when the caller has one.
func BMIScore(bmi float64, age *int, percentile *float64) float64 {
	if age != nil && *age < 18 {
		return childBMIScore(bmi, percentile)
	}
	return adultBMIScore(bmi)
}

func adultBMIScore(bmi float64) float64 {
	switch {
	case bmi < 18.5:
		return math.Max(10, Clamp(bmi*5, 0, 100))
	case bmi < 25:
		return 100
	case bmi < 30:
		return 75
	case bmi < 35:
		return 50
	case bmi < 40:
		return 25
	default:
		return 10
	}
}

// childBMIScore is a simplified band for under-18s.
// TODO: replace with CDC BMI-for-age growth-chart lookup once the reference
// tables are supplied; until then a supplied percentile is banded and the
// adult cut-offs apply otherwise.
func childBMIScore(bmi float64, percentile *float64) float64 {
	if percentile == nil {
		return adultBMIScore(bmi)
	}
	p := Clamp(*percentile, 0, 100)
	switch {
	case p < 5:
		return 60
	case p < 85:
		return 100
	case p < 95:
		return 75
	default:
		return 50
	}
}

// SleepRange is the optimal nightly sleep in hours for an age group.
type SleepRange struct {
	Min float64
	Max float64
}

// OptimalSleep returns the recommended range for age; nil age gets the
// school-age adolescent range.
func OptimalSleep(age *int) SleepRange {
	if age == nil {
		return SleepRange{8, 10}
	}
	a := *age
	switch {
	case a < 3:
		return SleepRange{11, 14}
	case a <= 5:
		return SleepRange{10, 13}
	case a <= 12:
		return SleepRange{9, 12}
	case a <= 17:
		return SleepRange{8, 10}
	case a <= 64:
		return SleepRange{7, 9}
	default:
		return SleepRange{7, 8}
	}
}

// SleepDurationScore scores nightly hours against the age-indexed range.
func SleepDurationScore(hours float64, age *int) float64 {
	r := OptimalSleep(age)
	switch {
	case hours < r.Min:
		return Clamp(hours/r.Min*100, 0, 100)
	case hours > r.Max:
		return math.Max(0, 100-10*(hours-r.Max))
	default:
		return 100
	}
}

// SleepScore averages duration with a 0-100 quality rating when one is given.
func SleepScore(hours *float64, quality *float64, age *int) Result {
	var parts []component
	if hours != nil {
		parts = append(parts, component{name: "duration", value: SleepDurationScore(*hours, age)})
	}
	if quality != nil {
		parts = append(parts, component{name: "quality", value: Clamp(*quality, 0, 100)})
	}
	return mean(parts)
}

type PhysicalInputs struct {
	Cardio         *float64
	Strength       *float64
	Flexibility    *float64
	Endurance      *float64
	SleepHours     *float64
	SleepQuality   *float64
	NutritionScore *float64
	BMI            *float64
	BMIPercentile  *float64
	Age            *int
}

// PhysicalComposite is the mean of the supplied fitness components, sleep,
// nutrition and BMI scores.
func PhysicalComposite(in PhysicalInputs) Result {
	var parts []component
	add := func(name string, v *float64) {
		if v != nil {
			parts = append(parts, component{name: name, value: Clamp(*v, 0, 100)})
		}
	}
	add("cardio", in.Cardio)
	add("strength", in.Strength)
	add("flexibility", in.Flexibility)
	add("endurance", in.Endurance)
	if s := SleepScore(in.SleepHours, in.SleepQuality, in.Age); s.Present() {
		parts = append(parts, component{name: "sleep", value: s.Score})
	}
	add("nutrition", in.NutritionScore)
	if in.BMI != nil && *in.BMI > 0 {
		parts = append(parts, component{name: "bmi", value: BMIScore(*in.BMI, in.Age, in.BMIPercentile)})
	}
	return mean(parts)
}
