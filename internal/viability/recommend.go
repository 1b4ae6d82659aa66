package viability

// Nearest is what the recommendation text needs to know about the closest CTO.
type Nearest struct {
	DistanceM float64
	Available int
}

// Recommendations restates the rating of the nearest CTO as prose. A nil
// nearest means the search found nothing.
func Recommendations(nearest *Nearest) []string {
	if nearest == nil {
		return []string{"Nenhuma CTO encontrada no raio especificado"}
	}

	if nearest.DistanceM > StandardRadiusM {
		return []string{
			"⚠️ CTO mais próxima está a mais de 300m",
			"💡 Considerar estudo de viabilidade técnica para extensão",
		}
	}

	recs := []string{"✅ CTO dentro do raio padrão de 300m"}
	if nearest.Available > 0 {
		recs = append(recs, "✅ Capacidade disponível para nova instalação")
	} else {
		recs = append(recs, "⚠️ CTO sem capacidade disponível - verificar expansão")
	}
	return recs
}
