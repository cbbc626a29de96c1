package domain

import (
	"slices"
	"strings"
)

// CategoryID identifies one of the fixed progress categories.
type CategoryID string

// CategoryID values.
const (
	CategoryPurpose  CategoryID = "C1"
	CategoryTeam     CategoryID = "C2"
	CategoryProblem  CategoryID = "C3"
	CategoryModel    CategoryID = "C4"
	CategoryFinance  CategoryID = "C5"
	CategoryContext  CategoryID = "C6"
	CategoryTraction CategoryID = "C7"
)

// Category stores display metadata for one progress category.
type Category struct {
	ID          CategoryID `json:"id"`
	Label       string     `json:"label"`
	Hint        string     `json:"hint"`
	Description string     `json:"description"`
}

// categories stores the fixed category table in display order.
var categories = []Category{
	{
		ID:          CategoryPurpose,
		Label:       "Propósito & ADN Colibrí",
		Hint:        "Propósito personal, narrativa underdog, FODA personal…",
		Description: "Alinea biografía, motivación y equipo alrededor de un propósito claro.",
	},
	{
		ID:          CategoryTeam,
		Label:       "Equipo & Alianzas",
		Hint:        "Roles, acuerdos, aliados clave…",
		Description: "Define roles, acuerdos y aliados clave para sostener el proyecto.",
	},
	{
		ID:          CategoryProblem,
		Label:       "Problema & Cliente",
		Hint:        "Entrevistas, mapas de empatía, definición del problema…",
		Description: "Comprende el problema, el contexto y la mirada de las personas usuarias.",
	},
	{
		ID:          CategoryModel,
		Label:       "Modelo & Solución",
		Hint:        "Propuesta de valor, hipótesis de solución, MVP…",
		Description: "Diseña la propuesta de valor, el modelo de impacto y la solución inicial.",
	},
	{
		ID:          CategoryFinance,
		Label:       "Finanzas & Viabilidad",
		Hint:        "Estructura de costos, fuentes de ingreso, escenario base…",
		Description: "Explora costos, fuentes de ingreso y escenarios de sostenibilidad.",
	},
	{
		ID:          CategoryContext,
		Label:       "Contexto & Factores Exógenos",
		Hint:        "Análisis del entorno, riesgos, regulaciones…",
		Description: "Analiza el ecosistema, riesgos, regulaciones y variables externas.",
	},
	{
		ID:          CategoryTraction,
		Label:       "Métricas & Tracción",
		Hint:        "KPIs, primeras métricas, evidencia de uso o interés…",
		Description: "Define qué vas a medir, cómo y con qué evidencias mostrarás tracción.",
	},
}

// Categories returns a copy of the fixed category table in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

// CategoryIDs returns the known category ids in display order.
func CategoryIDs() []CategoryID {
	out := make([]CategoryID, 0, len(categories))
	for _, category := range categories {
		out = append(out, category.ID)
	}
	return out
}

// LookupCategory returns metadata for one known category.
func LookupCategory(id CategoryID) (Category, bool) {
	id = NormalizeCategoryID(id)
	for _, category := range categories {
		if category.ID == id {
			return category, true
		}
	}
	return Category{}, false
}

// NormalizeCategoryID canonicalizes category ids to their stored form.
func NormalizeCategoryID(id CategoryID) CategoryID {
	return CategoryID(strings.TrimSpace(strings.ToUpper(string(id))))
}

// IsKnownCategory reports whether the id belongs to the fixed category table.
func IsKnownCategory(id CategoryID) bool {
	_, ok := LookupCategory(id)
	return ok
}

// DisplayLabel renders the id-prefixed label used by list and form surfaces.
func (c Category) DisplayLabel() string {
	return string(c.ID) + " — " + c.Label
}
