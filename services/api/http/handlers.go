package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elofiber/viabilidade-ftth/internal/geo"
	"github.com/elofiber/viabilidade-ftth/internal/proximity"
	"github.com/elofiber/viabilidade-ftth/internal/validation"
	"github.com/elofiber/viabilidade-ftth/internal/viability"
)

const (
	msgInvalidCoordinates = "Coordenadas inválidas"
	msgInvalidRadius      = "Parâmetro radius inválido"
	msgInternal           = "Erro interno do servidor"
	msgNoServingCTO       = "Nenhuma CTO dentro do raio"
	msgInputRequired      = "Parâmetro input é obrigatório"
)

// handleViability runs the radius search and rates every CTO found.
// GET /api/viability?lat=&lng=&radius=
func (s *Server) handleViability(c *gin.Context) {
	coords := validation.ValidateCoordinates(c.Query("lat"), c.Query("lng"))
	if !coords.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   msgInvalidCoordinates,
			"details": coords.Errors,
		})
		return
	}

	radius := validation.ValidateRadius(c.Query("radius"))
	if !radius.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   msgInvalidRadius,
			"details": radius.Error,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.queryTimeout())
	defer cancel()

	results, err := s.svc.Nearby(ctx, coords.Coordinate, float64(radius.Radius))
	if err != nil {
		s.internalError(c, "viability search failed", err)
		return
	}

	var nearest *viability.Nearest
	if len(results) > 0 {
		nearest = &viability.Nearest{
			DistanceM: results[0].DistanceM,
			Available: results[0].CapacityAvailable,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metadata": gin.H{
			"coordenadas_consulta": gin.H{
				"latitude":  coords.Coordinate.Lat,
				"longitude": coords.Coordinate.Lng,
			},
			"raio_metros":      radius.Radius,
			"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
			"total_resultados": len(results),
		},
		"viabilidade_geral": viability.Overall(len(results)),
		"viavel":            len(results) > 0,
		"resultados":        results,
		"recomendacoes":     viability.Recommendations(nearest),
	})
}

// handleInfrastructure joins the standard CTO search with the POP search.
// GET /api/infraestrutura?lat=&lng=
func (s *Server) handleInfrastructure(c *gin.Context) {
	coords := validation.ValidateCoordinates(c.Query("lat"), c.Query("lng"))
	if !coords.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   msgInvalidCoordinates,
			"details": coords.Errors,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.queryTimeout())
	defer cancel()

	infra, err := s.svc.Infrastructure(ctx, coords.Coordinate)
	if err != nil {
		s.internalError(c, "infrastructure search failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"consulta": gin.H{
			"latitude":  coords.Coordinate.Lat,
			"longitude": coords.Coordinate.Lng,
		},
		"cto_disponiveis":  infra.CTOCount,
		"pop_disponiveis":  infra.POPCount,
		"cto_mais_proxima": infra.NearestCTO,
		"pop_mais_proximo": infra.NearestPOP,
		"lista_ctos":       infra.CTOs,
		"lista_pops":       infra.POPs,
	})
}

// handleStats reports inventory-wide capacity.
// GET /api/estatisticas
func (s *Server) handleStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.queryTimeout())
	defer cancel()

	st, err := s.svc.Stats(ctx)
	if err != nil {
		s.internalError(c, "stats query failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"total_ctos":         st.TotalCTOs,
		"cto_com_capacidade": st.WithCapacity,
		"cto_sem_capacidade": st.WithoutCapacity,
		"capacidade_media":   st.MeanCapacity,
		"atualizado_em":      time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// handleExtract pulls a coordinate out of a maps link or a typed pair.
// GET /api/extract?input=
func (s *Server) handleExtract(c *gin.Context) {
	input := c.Query("input")
	if input == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgInputRequired})
		return
	}

	ex, ok := geo.Extract(input)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "encontrado": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"encontrado": true,
		"coordenadas": gin.H{
			"latitude":  ex.Lat,
			"longitude": ex.Lng,
		},
		"origem":   ex.Source,
		"decimal":  geo.FormatDecimal(ex.Coordinate),
		"dms":      geo.FormatDMS(ex.Coordinate),
		"maps_url": geo.MapsURL(ex.Coordinate),
	})
}

type servingRequest struct {
	Latitude  interface{} `json:"latitude"`
	Longitude interface{} `json:"longitude"`
}

// handleCheckServing answers whether any CTO's own service radius covers
// the point.
// POST /viabilidade {"latitude": .., "longitude": ..}
func (s *Server) handleCheckServing(c *gin.Context) {
	var req servingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Latitude e longitude são obrigatórias"})
		return
	}

	coords := validation.ValidateCoordinates(rawNumber(req.Latitude), rawNumber(req.Longitude))
	if !coords.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   msgInvalidCoordinates,
			"details": coords.Errors,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.queryTimeout())
	defer cancel()

	cto, err := s.svc.CheckServing(ctx, coords.Coordinate)
	if err != nil {
		s.internalError(c, "serving check failed", err)
		return
	}
	if cto == nil {
		c.JSON(http.StatusOK, gin.H{"viavel": false, "mensagem": msgNoServingCTO})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viavel": true, "cto": cto})
}

// rawNumber turns a JSON number or string into the text the validator reads.
func rawNumber(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	default:
		return ""
	}
}

func (s *Server) queryTimeout() time.Duration {
	if s.cfg.QueryTimeout > 0 {
		return s.cfg.QueryTimeout
	}
	return proximity.DefaultQueryTimeout
}

// internalError logs the detail and answers with a generic 500.
func (s *Server) internalError(c *gin.Context, msg string, err error) {
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	}
	if errors.Is(err, proximity.ErrUpstream) {
		fields = append(fields, zap.Bool("upstream", true))
	}
	s.log.Error(msg, fields...)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgInternal})
}
