package handlers

import (
	"cmp"
	"context"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"elda-admin/internal/activity"
	"elda-admin/internal/apiclient"
	"elda-admin/internal/db"
	"elda-admin/internal/middleware"
	"elda-admin/internal/models"
	"elda-admin/internal/querycache"
	"elda-admin/internal/refresh"
	"elda-admin/internal/table"

	"github.com/gin-gonic/gin"
)

// Client-mode lists are read page by page up to clientMaxRows; anything past
// the cap is reported as truncated rather than dropped silently.
const (
	clientPageSize = 100
	clientMaxRows  = 5000
)

// Resource describes one entity screen: where it lives upstream, who may use
// it, how its table looks and how long its reads stay fresh.
type Resource[T any] struct {
	Name   string
	Entity string
	Roles  []string

	Columns   []table.Column[T]
	SearchKey string
	// Manual lists are paginated and searched by the API.
	Manual   bool
	RowClass func(T, int) string
	ID       func(T) string
	// MaxRows caps a client-mode list; zero means clientMaxRows.
	MaxRows int

	Cache querycache.Options
}

// Deps are the collaborators every resource handler shares.
type Deps struct {
	API      *apiclient.Client
	Cache    *querycache.Cache
	Gates    *refresh.Registry
	Sessions *activity.Registry
	Audit    db.AuditStore
}

// ResourceRoutes is the route surface of a resource, independent of its row type.
type ResourceRoutes interface {
	Name() string
	Roles() []string
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Refresh(c *gin.Context)
	View(ctx context.Context, token string, q url.Values, visible bool) (ListView, error)
}

type ResourceHandler[T any] struct {
	res  Resource[T]
	deps Deps
}

func NewResourceHandler[T any](res Resource[T], deps Deps) *ResourceHandler[T] {
	return &ResourceHandler[T]{res: res, deps: deps}
}

func (h *ResourceHandler[T]) Name() string    { return h.res.Name }
func (h *ResourceHandler[T]) Roles() []string { return h.res.Roles }

// The API filters rows by caller, so list and detail entries belong to the
// session that read them. Mutations reach every session through Any.
func (h *ResourceHandler[T]) listKey(session string, p listParams) querycache.Key {
	if !h.res.Manual {
		return querycache.ListKey(h.res.Name, session)
	}
	return querycache.ListKey(h.res.Name, session, strconv.Itoa(p.page), strconv.Itoa(p.size), p.search)
}

func (h *ResourceHandler[T]) detailKey(session, id string) querycache.Key {
	return querycache.DetailKey(h.res.Name, session, id)
}

func (h *ResourceHandler[T]) anyDetail(id string) querycache.Key {
	return querycache.Key{h.res.Name, querycache.Any, "detail", id}
}

type listParams struct {
	page   int
	size   int
	search string
	query  url.Values
}

func parseListParams(q url.Values) listParams {
	p := listParams{page: 1, size: table.DefaultPageSize, search: strings.TrimSpace(q.Get("q")), query: q}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.page = n
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil && slices.Contains(table.PageSizeOptions, n) {
		p.size = n
	}
	return p
}

// ListView is the list screen state: the rendered table and the tri-state
// query outcome behind it.
type ListView struct {
	Resource  string            `json:"resource"`
	Status    querycache.Status `json:"status"`
	Error     string            `json:"error,omitempty"`
	Stale     bool              `json:"stale"`
	FromCache bool              `json:"from_cache"`
	UpdatedAt time.Time         `json:"updated_at"`
	// Truncated is set when a client-mode list hit the row cap before the
	// API ran out of pages.
	Truncated bool       `json:"truncated,omitempty"`
	Table     table.View `json:"table"`
}

func (h *ResourceHandler[T]) fetchList(ctx context.Context, token string, p listParams, visible bool) querycache.Result[apiclient.Page[T]] {
	opts := h.res.Cache
	opts.Disabled = !visible
	return querycache.Query(ctx, h.deps.Cache, h.listKey(middleware.SessionKey(token), p), opts,
		func(ctx context.Context) (apiclient.Page[T], error) {
			if !h.res.Manual {
				return apiclient.ListAll[T](ctx, h.deps.API, token, h.res.Name, clientPageSize, cmp.Or(h.res.MaxRows, clientMaxRows))
			}
			lp := apiclient.ListParams{Page: p.page, Limit: p.size, Search: p.search}
			return apiclient.List[T](ctx, h.deps.API, token, h.res.Name, lp)
		})
}

func (h *ResourceHandler[T]) buildTable(page apiclient.Page[T], p listParams) *table.Table[T] {
	opts := table.Options[T]{
		Columns:   h.res.Columns,
		SearchKey: h.res.SearchKey,
		Manual:    h.res.Manual,
		RowClass:  h.res.RowClass,
		RowID:     h.res.ID,
	}
	q := url.Values{}
	for k, v := range p.query {
		q[k] = v
	}
	if h.res.Manual {
		// The API already applied search and paging to this page.
		opts.PageIndex = p.page - 1
		opts.PageSize = p.size
		opts.PageCount = page.Paging.TotalPages
		opts.TotalRows = page.Paging.Total
		q.Del("q")
		q.Del("page")
		q.Del("size")
	}
	t := table.New(page.Items, opts)
	t.ApplyQuery(q)
	return t
}

// View runs the list query and renders it. A 401 is returned as an error;
// any other failure is reported in the view, with stale rows when cached.
// A hidden tab only sees what is already cached. A manual page past the end
// is clamped to the last page the API reports.
func (h *ResourceHandler[T]) View(ctx context.Context, token string, q url.Values, visible bool) (ListView, error) {
	p := parseListParams(q)
	res := h.fetchList(ctx, token, p, visible)
	if last := res.Data.Paging.TotalPages; h.res.Manual && res.Status == querycache.StatusSuccess && last >= 1 && p.page > last {
		p.page = last
		res = h.fetchList(ctx, token, p, visible)
	}
	if apiclient.IsUnauthorized(res.Err) {
		return ListView{}, res.Err
	}
	v := ListView{
		Resource:  h.res.Name,
		Status:    res.Status,
		Stale:     res.Stale,
		FromCache: res.FromCache,
		UpdatedAt: res.UpdatedAt,
	}
	if res.Err != nil {
		v.Error = apiclient.Message(res.Err)
		log.Printf("list failed resource=%s err=%v", h.res.Name, res.Err)
	}
	if !h.res.Manual && len(res.Data.Items) < res.Data.Paging.Total {
		v.Truncated = true
	}
	if v.Truncated && !res.FromCache {
		log.Printf("list truncated resource=%s rows=%d total=%d", h.res.Name, len(res.Data.Items), res.Data.Paging.Total)
	}
	v.Table = h.buildTable(res.Data, p).Render()
	if h.res.Manual && p.search != "" {
		v.Table.Filter = p.search
	}
	return v, nil
}

// List godoc
// GET /api/:resource?page=&size=&q=&sort=&dir=
func (h *ResourceHandler[T]) List(c *gin.Context) {
	visible := h.deps.Sessions.Get(middleware.SessionID(c)).State().Visible
	v, err := h.View(c.Request.Context(), c.GetString("token"), c.Request.URL.Query(), visible)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "details": apiclient.Message(err)})
		return
	}
	status := http.StatusOK
	if v.Status == querycache.StatusError && !v.Stale {
		status = http.StatusBadGateway
	}
	// Pending means the tab is hidden and nothing is cached yet; the
	// front end retries when it becomes visible.
	c.JSON(status, v)
}

// Get godoc
// GET /api/:resource/:id
func (h *ResourceHandler[T]) Get(c *gin.Context) {
	id := c.Param("id")
	token := c.GetString("token")
	key := h.detailKey(middleware.SessionID(c), id)
	res := querycache.Query(c.Request.Context(), h.deps.Cache, key, h.res.Cache,
		func(ctx context.Context) (T, error) {
			return apiclient.Get[T](ctx, h.deps.API, token, h.res.Name, id)
		})
	switch {
	case res.Status == querycache.StatusSuccess:
		c.JSON(http.StatusOK, gin.H{"data": res.Data, "from_cache": res.FromCache, "updated_at": res.UpdatedAt})
	case apiclient.IsUnauthorized(res.Err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "details": apiclient.Message(res.Err)})
	case apiclient.IsNotFound(res.Err):
		h.deps.Cache.Remove(key)
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(h.res.Entity) + " not found"})
	case res.Stale:
		c.JSON(http.StatusOK, gin.H{"data": res.Data, "stale": true, "error": apiclient.Message(res.Err)})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load " + h.res.Entity, "details": apiclient.Message(res.Err)})
	}
}

func bindPayload(c *gin.Context) (map[string]any, bool) {
	var in map[string]any
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return nil, false
	}
	if len(in) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": "empty body"})
		return nil, false
	}
	return in, true
}

// Create godoc
// POST /api/:resource
// Contract: invalidate [resource].
func (h *ResourceHandler[T]) Create(c *gin.Context) {
	in, ok := bindPayload(c)
	if !ok {
		return
	}
	out, err := apiclient.Create[T](c.Request.Context(), h.deps.API, c.GetString("token"), h.res.Name, in)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	h.deps.Cache.Invalidate(querycache.Key{h.res.Name})
	id := ""
	if h.res.ID != nil {
		id = h.res.ID(out)
	}
	h.audit(c, id, "create", http.StatusCreated)
	c.JSON(http.StatusCreated, gin.H{"data": out, "toast": successToast(h.res.Entity, "created")})
}

// Update godoc
// PATCH /api/:resource/:id
// Contract: invalidate [resource, *, list] and [resource, *, detail, id],
// then patch this session's [resource, session, detail, id].
func (h *ResourceHandler[T]) Update(c *gin.Context) {
	id := c.Param("id")
	in, ok := bindPayload(c)
	if !ok {
		return
	}
	out, err := apiclient.Update[T](c.Request.Context(), h.deps.API, c.GetString("token"), h.res.Name, id, in)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	h.deps.Cache.Invalidate(querycache.Key{h.res.Name, querycache.Any, "list"})
	h.deps.Cache.Invalidate(h.anyDetail(id))
	querycache.SetQueryData(h.deps.Cache, h.detailKey(middleware.SessionID(c), id), func(T, bool) T { return out })
	h.audit(c, id, "update", http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"data": out, "toast": successToast(h.res.Entity, "updated")})
}

// Delete godoc
// DELETE /api/:resource/:id
// Contract: remove [resource, *, detail, id], invalidate [resource]. A rejected delete
// leaves the cache untouched.
func (h *ResourceHandler[T]) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := apiclient.Delete(c.Request.Context(), h.deps.API, c.GetString("token"), h.res.Name, id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	h.deps.Cache.Remove(h.anyDetail(id))
	h.deps.Cache.Invalidate(querycache.Key{h.res.Name})
	h.audit(c, id, "delete", http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"toast": successToast(h.res.Entity, "deleted")})
}

// Refresh godoc
// POST /api/:resource/refresh
// Runs the smart-refresh gate for this session and resource.
func (h *ResourceHandler[T]) Refresh(c *gin.Context) {
	session := middleware.SessionID(c)
	state := h.deps.Sessions.Get(session).State()
	gate := h.deps.Gates.Gate(session + ":" + h.res.Name)
	token := c.GetString("token")
	p := parseListParams(c.Request.URL.Query())

	outcome, err := gate.Trigger(c.Request.Context(), state.LastActivity, func(ctx context.Context) error {
		h.deps.Cache.Invalidate(querycache.Key{h.res.Name, session})
		return h.fetchList(ctx, token, p, true).Err
	})
	if err != nil {
		status := http.StatusBadGateway
		if apiclient.IsUnauthorized(err) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"outcome": outcome, "error": "Refresh failed", "details": apiclient.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "refreshing": gate.Refreshing()})
}

// fail turns a mutation error into a toast. Nothing in the cache changes.
func (h *ResourceHandler[T]) fail(c *gin.Context, action string, err error) {
	status := apiclient.StatusCode(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	toast := failureToast(h.res.Entity, action, err)
	log.Printf("mutation failed resource=%s action=%s status=%d err=%v", h.res.Name, action, status, err)
	c.JSON(status, gin.H{"error": toast.Title, "details": toast.Description, "toast": toast})
}

func (h *ResourceHandler[T]) audit(c *gin.Context, recordID, action string, status int) {
	if h.deps.Audit == nil {
		return
	}
	entry := models.AuditLog{
		UserID:   c.GetString("user_id"),
		Resource: h.res.Name,
		RecordID: recordID,
		Action:   action,
		Status:   status,
	}
	if err := h.deps.Audit.InsertAudit(c.Request.Context(), entry); err != nil {
		log.Printf("audit insert failed resource=%s action=%s err=%v", h.res.Name, action, err)
	}
}
