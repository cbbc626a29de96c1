package app

import (
	"time"

	"github.com/colibri-os/rlab/internal/domain"
)

// DemoProfile describes the sample participant the demo journey belongs to.
type DemoProfile struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Vertical string `json:"vertical"`
	Project  string `json:"project"`
}

// DefaultDemoProfile returns the sample participant shown with seeded data.
func DefaultDemoProfile() DemoProfile {
	return DemoProfile{
		Name:     "Ana López",
		Country:  "Chile",
		Vertical: "EdTech · IP Nativa",
		Project:  "Colibrí OS · Infraestructura educativa IP-native",
	}
}

// demoDay returns midnight UTC for one February 2026 day.
func demoDay(day int) time.Time {
	return time.Date(2026, time.February, day, 0, 0, 0, 0, time.UTC)
}

// DemoEvents returns the completed steps of the sample journey, oldest first.
func DemoEvents() []domain.Event {
	return []domain.Event{
		{
			ID:          "ev-008",
			Kind:        domain.EventKindMilestone,
			Title:       "Ana recibe su NFT Colibrí en estado Torpor",
			Description: "Inicio del viaje educativo Colibrí LATAM. Ana acepta el compromiso de completar las 21 microacciones + 7 evidencias para alcanzar Semilla de Luz (N1).",
			CreatedAt:   demoDay(9),
		},
		{
			ID:          "ev-007",
			Kind:        domain.EventKindMicroAction,
			Category:    domain.CategoryPurpose,
			Title:       "Microacción C1.1 — Declaración de Propósito Personal",
			Description: "Ana redacta su declaración de propósito personal conectando su historia, sus dones y el impacto que quiere generar como emprendedora Colibrí.",
			CreatedAt:   demoDay(10),
		},
		{
			ID:          "ev-006",
			Kind:        domain.EventKindMicroAction,
			Category:    domain.CategoryPurpose,
			Title:       "Microacción C1.2 — Identidad Colibrí (Narrativa Underdog)",
			Description: "Ana define su narrativa underdog: de dónde viene, qué desafíos ha enfrentado y por qué su historia la prepara para liderar su proyecto.",
			CreatedAt:   demoDay(12),
		},
		{
			ID:          "ev-005",
			Kind:        domain.EventKindMicroAction,
			Category:    domain.CategoryPurpose,
			Title:       "Microacción C1.3 — Mapa de Fortalezas y Limitaciones",
			Description: "Ana completa su FODA personal identificando fortalezas, debilidades, oportunidades y amenazas clave para su viaje emprendedor.",
			CreatedAt:   demoDay(14),
		},
		{
			ID:                   "ev-004",
			Kind:                 domain.EventKindEvidence,
			Category:             domain.CategoryPurpose,
			Title:                "Evidencia C1-N1 — Documento Integrado de Propósito",
			Description:          "Ana integra sus tres microacciones en un documento formal (IP educativa) que resume su propósito, narrativa underdog y FODA personal.",
			RegisteredExternally: true,
			CreatedAt:            demoDay(16),
		},
		{
			ID:          "ev-003",
			Kind:        domain.EventKindMicroAction,
			Category:    domain.CategoryTeam,
			Title:       "Microacción C2.1 — Mapa de Actores Clave del Equipo",
			Description: "Ana identifica los roles críticos para su proyecto (cofundadores, advisors, aliados) y los clasifica según su nivel de compromiso actual.",
			CreatedAt:   demoDay(18),
		},
	}
}
