// Package viability turns distance and spare capacity into a qualitative
// installation rating. Ratings are always computed on demand and never
// persisted, so they cannot drift from the capacity data behind them.
package viability

// Fixed service thresholds in meters. They describe the standard service
// radius of the network and are independent of the radius a caller searched.
const (
	StandardRadiusM = 300
	ExtendedRadiusM = 500
)

// Level is the coarse viability bucket.
type Level string

const (
	High   Level = "HIGH"
	Medium Level = "MEDIUM"
	Low    Level = "LOW"
)

// Rating is a Level plus the qualifier explaining it.
type Rating struct {
	Level     Level
	Qualifier string
}

var (
	ratingHigh          = Rating{Level: High, Qualifier: "Dentro do raio e com capacidade"}
	ratingNoCapacity    = Rating{Level: Medium, Qualifier: "Dentro do raio mas sem capacidade"}
	ratingOutsideRadius = Rating{Level: Medium, Qualifier: "Fora do raio padrão, com capacidade"}
	ratingLow           = Rating{Level: Low, Qualifier: "Fora do raio ou sem capacidade"}
)

// Classify rates a CTO by its distance to the query point and its
// available capacity.
func Classify(distanceM float64, available int) Rating {
	switch {
	case distanceM <= StandardRadiusM && available > 0:
		return ratingHigh
	case distanceM <= StandardRadiusM && available == 0:
		return ratingNoCapacity
	case distanceM <= ExtendedRadiusM && available > 0:
		return ratingOutsideRadius
	default:
		return ratingLow
	}
}

// Label is the wire form, e.g. "ALTA - Dentro do raio e com capacidade".
func (r Rating) Label() string {
	return r.Level.Word() + " - " + r.Qualifier
}

// Word is the pt-BR name of the level.
func (l Level) Word() string {
	switch l {
	case High:
		return "ALTA"
	case Medium:
		return "MÉDIA"
	case Low:
		return "BAIXA"
	default:
		return "DESCONHECIDA"
	}
}

// Color is the marker colour used on maps and tables.
func (l Level) Color() string {
	switch l {
	case High:
		return "#10b981"
	case Medium:
		return "#f59e0b"
	case Low:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// Overall summarises a search: any CTO in range makes the point viable.
func Overall(results int) string {
	if results > 0 {
		return "VIÁVEL"
	}
	return "NÃO VIÁVEL"
}
