package lead

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_lead_stage_transitions_total",
			Help: "Lead movements between pipeline stages",
		},
		[]string{"from_stage", "to_stage"},
	)

	leadsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_leads_created_total",
			Help: "Total number of leads created",
		},
	)

	permissionDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_lead_permission_denials_total",
			Help: "Lead operations rejected by the permission matrix",
		},
		[]string{"action"},
	)
)

func recordStageTransition(fromStageID, toStageID int) {
	stageTransitions.WithLabelValues(strconv.Itoa(fromStageID), strconv.Itoa(toStageID)).Inc()
}

func recordPermissionDenial(action string) {
	permissionDenials.WithLabelValues(action).Inc()
}
