package effects

// NightGradient is used for every condition once the sun is down.
const NightGradient = "linear-gradient(180deg, #0a0a12 0%, #141420 55%, #252535 100%)"

var gradients = map[Kind]string{
	KindStorm: "linear-gradient(180deg, #1f1c2c 0%, #2d2a3e 50%, #3f3b52 100%)",
	KindRain:  "linear-gradient(180deg, #3a4a5c 0%, #5b6b7d 60%, #7d8b99 100%)",
	KindSnow:  "linear-gradient(180deg, #dfe9f3 0%, #c9d6e3 60%, #ffffff 100%)",
	KindCloud: "linear-gradient(180deg, #8e9eab 0%, #b3c0ca 60%, #eef2f3 100%)",
	KindClear: "linear-gradient(180deg, #4fc3f7 0%, #8fd6fa 60%, #f5f0e8 100%)",
}

var nightGradients = map[Kind]string{
	KindStorm: "linear-gradient(180deg, #07070d 0%, #12101c 60%, #1f1c2c 100%)",
	KindRain:  "linear-gradient(180deg, #0b1018 0%, #172230 60%, #253445 100%)",
	KindSnow:  "linear-gradient(180deg, #141a24 0%, #232c3a 60%, #3a4656 100%)",
	KindCloud: "linear-gradient(180deg, #10131a 0%, #1c212b 60%, #2c3340 100%)",
	KindClear: NightGradient,
}

func gradientFor(k Kind, isDay bool) string {
	if isDay {
		return gradients[k]
	}
	return nightGradients[k]
}

func iconFor(k Kind, isDay bool) string {
	name := string(k)
	switch k {
	case KindClear:
		if isDay {
			name = "clear-day"
		} else {
			name = "clear-night"
		}
	case KindCloud:
		if !isDay {
			name = "cloud-night"
		}
	}
	return "/static/icons/" + name + ".svg"
}

// Temperature bucket colors, coldest first.
const (
	ColorFreezing = "#74b9ff"
	ColorCold     = "#a0c4e8"
	ColorMild     = "#8fd694"
	ColorWarm     = "#ffb26b"
	ColorHot      = "#ff7043"
)

// BackgroundForTemperature maps a Celsius value to its bucket color.
func BackgroundForTemperature(c float64) string {
	switch {
	case c <= 0:
		return ColorFreezing
	case c <= 15:
		return ColorCold
	case c <= 25:
		return ColorMild
	case c <= 35:
		return ColorWarm
	default:
		return ColorHot
	}
}

// Background is BackgroundForTemperature with the night override applied.
func Background(c float64, isDay bool) string {
	if !isDay {
		return NightGradient
	}
	return BackgroundForTemperature(c)
}
