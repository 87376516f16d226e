package agents

import (
	"github.com/gin-gonic/gin"

	apphttp "sales_command_center/internal/http"
	"sales_command_center/internal/leads/domain"
	"sales_command_center/platform/httpkit"
)

// Handler exposes read-only views of the roster and rotation queues.
type Handler struct {
	repo     *Repository
	rotation *Rotation
}

// NewHandler creates the agents handler.
func NewHandler(repo *Repository, rotation *Rotation) *Handler {
	return &Handler{repo: repo, rotation: rotation}
}

// Name implements the HTTP module interface.
func (h *Handler) Name() string { return "agents" }

// RegisterRoutes mounts the agent endpoints.
func (h *Handler) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/agents")
	group.GET("", h.listAgents)
	group.GET("/queues", h.listQueues)
}

func (h *Handler) listAgents(c *gin.Context) {
	agents, err := h.repo.ActiveAgents(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"agents": agents})
}

// listQueues returns both rotation queues in their current order; the first
// agent in each list is next up for a fallback assignment.
func (h *Handler) listQueues(c *gin.Context) {
	queues := make(map[string][]Agent, 2)
	for _, category := range []string{domain.CategoryMarketed, domain.CategoryTechGenerated} {
		queue, err := h.rotation.CurrentOrder(c.Request.Context(), category)
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		if queue == nil {
			queue = []Agent{}
		}
		queues[category] = queue
	}
	httpkit.OK(c, gin.H{"queues": queues})
}
