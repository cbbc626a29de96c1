package tui

import "github.com/colibri-os/rlab/internal/domain"

// dashboardTab identifies one top-level dashboard tab.
type dashboardTab int

// tabPanel and related constants define the tab order.
const (
	tabPanel dashboardTab = iota
	tabTimeline
	tabEvidence
)

// tabCount stores the number of dashboard tabs.
const tabCount = 3

// Label returns the tab title.
func (t dashboardTab) Label() string {
	switch t {
	case tabTimeline:
		return "Timeline"
	case tabEvidence:
		return "Evidencias"
	default:
		return "Panel"
	}
}

// modalKind identifies the active overlay.
type modalKind int

// modalNone and related constants define overlay states.
const (
	modalNone modalKind = iota
	modalForm
	modalDetail
)

// kindFilterCycle stores the timeline filter rotation; "" shows everything.
var kindFilterCycle = []domain.EventKind{
	"",
	domain.EventKindMicroAction,
	domain.EventKindEvidence,
	domain.EventKindMilestone,
}

// viewState stores the declarative dashboard state read by rendering.
type viewState struct {
	tab        dashboardTab
	category   int
	kindFilter domain.EventKind
	modal      modalKind
}

// viewAction identifies one dashboard state transition.
type viewAction int

// actionNextTab and related constants define supported transitions.
const (
	actionNextTab viewAction = iota
	actionPrevTab
	actionNextCategory
	actionPrevCategory
	actionCycleKindFilter
	actionOpenForm
	actionOpenDetail
	actionCloseModal
)

// reduce applies one transition and returns the next state.
func reduce(s viewState, action viewAction) viewState {
	categoryCount := len(domain.CategoryIDs())
	switch action {
	case actionNextTab:
		if s.modal == modalNone {
			s.tab = dashboardTab(wrapIndex(int(s.tab), 1, tabCount))
		}
	case actionPrevTab:
		if s.modal == modalNone {
			s.tab = dashboardTab(wrapIndex(int(s.tab), -1, tabCount))
		}
	case actionNextCategory:
		if s.modal == modalNone {
			s.category = wrapIndex(s.category, 1, categoryCount)
		}
	case actionPrevCategory:
		if s.modal == modalNone {
			s.category = wrapIndex(s.category, -1, categoryCount)
		}
	case actionCycleKindFilter:
		if s.modal == modalNone {
			idx := 0
			for i, kind := range kindFilterCycle {
				if kind == s.kindFilter {
					idx = i
					break
				}
			}
			s.kindFilter = kindFilterCycle[wrapIndex(idx, 1, len(kindFilterCycle))]
		}
	case actionOpenForm:
		s.modal = modalForm
	case actionOpenDetail:
		if s.modal == modalNone {
			s.modal = modalDetail
		}
	case actionCloseModal:
		s.modal = modalNone
	}
	return s
}

// selectedCategory returns the category under the cursor.
func (s viewState) selectedCategory() domain.Category {
	categories := domain.Categories()
	return categories[clamp(s.category, 0, len(categories)-1)]
}

// kindFilterLabel describes the active timeline filter.
func (s viewState) kindFilterLabel() string {
	if s.kindFilter == "" {
		return "todos"
	}
	return s.kindFilter.Label()
}

// wrapIndex advances one index by delta and wraps within total.
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := (current + delta) % total
	if next < 0 {
		next += total
	}
	return next
}

// clamp bounds v within [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
