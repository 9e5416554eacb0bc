package handlers

import (
	"log"
	"net/http"
	"strings"

	"elda-admin/internal/apiclient"
	"elda-admin/internal/middleware"
	"elda-admin/internal/models"
	"elda-admin/internal/querycache"
	"elda-admin/internal/table"

	"github.com/gin-gonic/gin"
)

// TicketResource lists support tickets in client mode: the whole set is
// fetched once and searched by description in memory.
func TicketResource() Resource[models.Ticket] {
	return Resource[models.Ticket]{
		Name:      "tickets",
		Entity:    "ticket",
		SearchKey: "description",
		ID:        func(t models.Ticket) string { return t.ID },
		RowClass: func(t models.Ticket, _ int) string {
			if t.Status == models.TicketClosed {
				return "row-muted"
			}
			return ""
		},
		Columns: []table.Column[models.Ticket]{
			{Key: "subject", Header: "Subject", Accessor: func(t models.Ticket) any { return t.Subject }, Sortable: true},
			{Key: "description", Header: "Description", Accessor: func(t models.Ticket) any { return t.Description },
				Cell: func(t models.Ticket) string { return truncate(t.Description, descriptionPreview) }},
			{Key: "status", Header: "Status", Accessor: func(t models.Ticket) any { return string(t.Status) },
				Cell: func(t models.Ticket) string { return humanize(string(t.Status)) }, Sortable: true},
			{Key: "priority", Header: "Priority", Accessor: func(t models.Ticket) any { return priorityRank(t.Priority) },
				Cell: func(t models.Ticket) string { return humanize(string(t.Priority)) }, Sortable: true},
			{Key: "tags", Header: "Tags", Accessor: func(t models.Ticket) any { return strings.Join(t.Tags, ", ") }},
			{Key: "creator", Header: "Creator", Accessor: func(t models.Ticket) any { return t.Creator.Name }, Sortable: true},
			{Key: "created_at", Header: "Opened", Accessor: func(t models.Ticket) any { return t.CreatedAt }, Sortable: true},
		},
	}
}

type TicketHandler struct {
	*ResourceHandler[models.Ticket]
}

func NewTicketHandler(deps Deps) *TicketHandler {
	return &TicketHandler{ResourceHandler: NewResourceHandler(TicketResource(), deps)}
}

// UpdateStatus godoc
// PATCH /api/tickets/:id/status
// Contract: optimistic patch of this session's cached detail and list, rolled
// back when the API rejects the change. Neither is created when absent. On
// success every session's [tickets, *, list] and [tickets, *, detail, id] is
// invalidated and this session's detail takes the server's copy.
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	var in struct {
		Status models.TicketStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}
	if !models.IsValidTicketStatus(in.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "details": string(in.Status)})
		return
	}

	id := c.Param("id")
	cache := h.deps.Cache
	session := middleware.SessionID(c)
	detailKey := h.detailKey(session, id)
	rollbackDetail := func() {}
	if _, cached := querycache.GetQueryData[models.Ticket](cache, detailKey); cached {
		rollbackDetail = querycache.Optimistic(cache, detailKey, func(old models.Ticket, _ bool) models.Ticket {
			old.Status = in.Status
			return old
		})
	}
	listKey := h.listKey(session, listParams{})
	rollbackList := func() {}
	if _, cached := querycache.GetQueryData[apiclient.Page[models.Ticket]](cache, listKey); cached {
		rollbackList = querycache.Optimistic(cache, listKey, func(old apiclient.Page[models.Ticket], _ bool) apiclient.Page[models.Ticket] {
			items := make([]models.Ticket, len(old.Items))
			copy(items, old.Items)
			for i := range items {
				if items[i].ID == id {
					items[i].Status = in.Status
				}
			}
			old.Items = items
			return old
		})
	}

	out, err := apiclient.Update[models.Ticket](c.Request.Context(), h.deps.API, c.GetString("token"), h.res.Name, id,
		map[string]any{"status": in.Status})
	if err != nil {
		rollbackList()
		rollbackDetail()
		log.Printf("ticket status rolled back id=%s status=%s err=%v", id, in.Status, err)
		h.fail(c, "update", err)
		return
	}
	cache.Invalidate(querycache.Key{h.res.Name, querycache.Any, "list"})
	cache.Invalidate(h.anyDetail(id))
	querycache.SetQueryData(cache, detailKey, func(models.Ticket, bool) models.Ticket { return out })
	h.audit(c, id, "status:"+string(in.Status), http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"data": out, "toast": models.Toast{
		Title:       "Ticket updated",
		Description: "Status changed to " + humanize(string(out.Status)) + ".",
		Variant:     models.ToastDefault,
	}})
}
