package present

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/elofiber/viabilidade-ftth/internal/apiclient"
	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/history"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

// Printer writes styled reports to w.
type Printer struct {
	w      io.Writer
	styles *Styles
}

// NewPrinter creates a printer; nil styles means the default theme.
func NewPrinter(w io.Writer, styles *Styles) *Printer {
	if styles == nil {
		styles = NewStyles(nil)
	}
	return &Printer{w: w, styles: styles}
}

// Viability prints the summary, the ranked table and the recommendations.
func (p *Printer) Viability(input string, resp *apiclient.ViabilityResponse) {
	s := p.styles
	q := geo.Coordinate{Lat: resp.Metadata.Query.Latitude, Lng: resp.Metadata.Query.Longitude}

	p.println(s.Title.Render("Consulta de viabilidade"))
	if input != "" {
		p.println(s.Muted.Render("Entrada: " + input))
	}
	p.println(fmt.Sprintf("%s %s (%s)", s.Label.Render("Coordenadas:"), geo.FormatDecimal(q), geo.FormatDMS(q)))
	p.println(fmt.Sprintf("%s %d m", s.Label.Render("Raio:"), resp.Metadata.RadiusM))

	overall := s.Error.Render(resp.Overall)
	if resp.Viable {
		overall = s.Success.Render(resp.Overall)
	}
	p.println(fmt.Sprintf("%s %s, %d CTO(s) encontrada(s)", s.Label.Render("Resultado:"), overall, len(resp.Results)))
	p.println("")

	if len(resp.Results) > 0 {
		p.println(p.CandidateTable(resp.Results))
		p.println("")
	}

	p.println(s.Label.Render("Recomendações"))
	for _, rec := range resp.Recommendations {
		p.println("  " + rec)
	}
}

// CandidateTable renders candidates ranked as returned, nearest first.
func (p *Printer) CandidateTable(candidates []proximity.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rating := c.Viabilidade
		if rating == "" {
			rating = c.Rating().Label()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.Name,
			c.Address,
			geo.FormatDistance(c.DistanceM),
			fmt.Sprintf("%d/%d", c.CapacityAvailable, c.CapacityTotal),
			p.styles.Level(c.Level).Render(rating),
		})
	}
	return p.table([]string{"#", "CTO", "Endereço", "Distância", "Capacidade", "Viabilidade"}, rows)
}

// Infrastructure prints the combined CTO and POP search.
func (p *Printer) Infrastructure(resp *apiclient.InfrastructureResponse) {
	s := p.styles
	p.println(s.Title.Render("Infraestrutura próxima"))
	p.println(fmt.Sprintf("%s %d   %s %d", s.Label.Render("CTOs:"), resp.CTOCount, s.Label.Render("POPs:"), resp.POPCount))

	if resp.NearestCTO != nil {
		p.println(fmt.Sprintf("%s %s a %s", s.Label.Render("CTO mais próxima:"), resp.NearestCTO.Name, geo.FormatDistance(resp.NearestCTO.DistanceM)))
	}
	if resp.NearestPOP != nil {
		p.println(fmt.Sprintf("%s %s a %s", s.Label.Render("POP mais próximo:"), resp.NearestPOP.Name, geo.FormatDistance(resp.NearestPOP.DistanceM)))
	}
	p.println("")

	if len(resp.CTOs) > 0 {
		p.println(p.CandidateTable(resp.CTOs))
		p.println("")
	}
	if len(resp.POPs) > 0 {
		p.println(p.popTable(resp.POPs))
	}
}

func (p *Printer) popTable(pops []warehouse.POP) string {
	rows := make([][]string, 0, len(pops))
	for i, pop := range pops {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			pop.Name,
			pop.OLTType,
			geo.FormatDistance(pop.DistanceM),
			strconv.Itoa(pop.PortsAvailable),
		})
	}
	return p.table([]string{"#", "POP", "OLT", "Distância", "Portas livres"}, rows)
}

// Stats prints the server inventory figures and, when given, the local
// search history figures.
func (p *Printer) Stats(server *apiclient.StatsResponse, local *history.Summary) {
	s := p.styles
	if server != nil {
		p.println(s.Title.Render("Inventário de CTOs"))
		p.println(fmt.Sprintf("  %s %d", s.Label.Render("Total:"), server.TotalCTOs))
		p.println(fmt.Sprintf("  %s %s", s.Label.Render("Com capacidade:"), s.Success.Render(strconv.FormatInt(server.WithCapacity, 10))))
		p.println(fmt.Sprintf("  %s %s", s.Label.Render("Sem capacidade:"), s.Error.Render(strconv.FormatInt(server.WithoutCapacity, 10))))
		p.println(fmt.Sprintf("  %s %.1f", s.Label.Render("Capacidade média:"), server.MeanCapacity))
		if server.UpdatedAt != "" {
			p.println(s.Muted.Render("  Atualizado em " + server.UpdatedAt))
		}
	}

	if local != nil {
		if server != nil {
			p.println("")
		}
		p.println(s.Title.Render("Histórico local"))
		p.println(fmt.Sprintf("  %s %d", s.Label.Render("Consultas:"), local.Total))
		p.println(fmt.Sprintf("  %s %d", s.Label.Render("Com resultados:"), local.WithResults))
		p.println(fmt.Sprintf("  %s %.1f", s.Label.Render("Média de resultados:"), local.MeanResults))
		if local.Last != nil {
			p.println(fmt.Sprintf("  %s %s (%s)", s.Label.Render("Última:"), local.Last.Input, formatTime(local.Last.Timestamp)))
		}
	}
}

// History lists stored searches, newest first.
func (p *Printer) History(entries []history.Entry) {
	if len(entries) == 0 {
		p.println(p.styles.Muted.Render("Nenhuma consulta no histórico"))
		return
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatTime(e.Timestamp),
			e.Input,
			geo.FormatDecimal(e.Coordinate),
			strconv.Itoa(e.ResultCount),
		})
	}
	p.println(p.table([]string{"#", "Data", "Entrada", "Coordenadas", "CTOs"}, rows))
}

// ExtractionFailed is the retry prompt shown when no coordinate was found.
func (p *Printer) ExtractionFailed(input string) {
	p.println(p.styles.Warning.Render("Não foi possível identificar coordenadas em: " + input))
	p.println(p.styles.Muted.Render("Tente novamente com um link do Google Maps ou no formato \"-23.55052, -46.633308\"."))
}

func (p *Printer) table(headers []string, rows [][]string) string {
	s := p.styles
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		})
	return t.Render()
}

func (p *Printer) println(line string) {
	fmt.Fprintln(p.w, strings.TrimRight(line, " "))
}

func formatTime(t time.Time) string {
	return t.Local().Format("02/01/2006 15:04")
}
