package resource

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/authorization"
	"github.com/taskdata/taskd/jsonweb"
	"github.com/taskdata/taskd/kit/platform/errors"
	kithttp "github.com/taskdata/taskd/kit/transport/http"
	"go.uber.org/zap"
)

const toggleSegment = "complete"

var errSubjectMismatch = &errors.Error{
	Code: errors.EForbidden,
	Msg:  "you can only access your own resources",
}

// Descriptor configures the endpoints produced for one resource class.
type Descriptor struct {
	// Name is the URL segment the resource is served under, e.g. "tasks".
	Name string

	// Service executes the scoped operations.
	Service Service

	// TokenParser verifies bearer credentials before any handler runs.
	TokenParser *jsonweb.TokenParser

	// ErrNotFound is the error reported when the service says a record is
	// absent. It carries the resource's own wording.
	ErrNotFound error

	// CreateValidator and UpdateValidator optionally check write payloads.
	CreateValidator *PayloadValidator
	UpdateValidator *PayloadValidator

	// ParseFilter optionally maps list query parameters onto a Filter.
	// Without it, only limit and offset are honored.
	ParseFilter func(url.Values) (Filter, error)

	// ToggleField names the boolean column flipped by PATCH {id}/complete.
	// Empty disables the toggle endpoint.
	ToggleField string
}

// Controller serves the six standard endpoints for one resource class:
//
//	GET    /{userID}/{name}                list
//	POST   /{userID}/{name}                create
//	GET    /{userID}/{name}/{id}           get one
//	PUT    /{userID}/{name}/{id}           update
//	DELETE /{userID}/{name}/{id}           delete
//	PATCH  /{userID}/{name}/{id}/complete  toggle
//
// Every handler resolves the caller's identity, requires the URL's userID to
// match it, and only then touches the service.
type Controller struct {
	chi.Router

	api  *kithttp.API
	log  *zap.Logger
	desc Descriptor
}

// NewController builds the endpoint set for a descriptor.
func NewController(log *zap.Logger, desc Descriptor) *Controller {
	c := &Controller{
		log:  log,
		api:  kithttp.NewAPI(kithttp.WithLog(log)),
		desc: desc,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
		authorization.Middleware(log, desc.TokenParser),
	)

	r.Route("/{userID}/"+desc.Name, func(r chi.Router) {
		r.Get("/", c.handleList)
		r.Post("/", c.handleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", c.handleGetOne)
			r.Put("/", c.handleUpdate)
			r.Delete("/", c.handleDelete)
			if desc.ToggleField != "" {
				r.Patch("/"+toggleSegment, c.handleToggle)
			}
		})
	})

	c.Router = r

	return c
}

func (c *Controller) handleList(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(w, r)
	if !ok {
		return
	}

	filter, err := c.parseFilter(r.URL.Query())
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	list, err := c.desc.Service.ListOwned(r.Context(), subject, filter)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	c.api.Respond(w, r, http.StatusOK, kithttp.Envelope{
		Success: true,
		Count:   kithttp.Count(list.Len()),
		Data:    list,
	})
}

func (c *Controller) handleCreate(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(w, r)
	if !ok {
		return
	}

	payload, ok := c.payload(w, r, c.desc.CreateValidator)
	if !ok {
		return
	}

	rec, err := c.desc.Service.Create(r.Context(), subject, payload)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	c.api.Respond(w, r, http.StatusCreated, kithttp.Envelope{
		Success: true,
		Message: c.singular() + " created successfully",
		Data:    rec,
	})
}

func (c *Controller) handleGetOne(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(w, r)
	if !ok {
		return
	}

	id, err := c.recordID(r)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	rec, err := c.desc.Service.GetOwned(r.Context(), subject, id)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}
	if rec == nil {
		c.api.Err(w, r, c.desc.ErrNotFound)
		return
	}

	c.api.Respond(w, r, http.StatusOK, kithttp.Envelope{
		Success: true,
		Data:    rec,
	})
}

func (c *Controller) handleUpdate(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(w, r)
	if !ok {
		return
	}

	id, err := c.recordID(r)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	payload, ok := c.payload(w, r, c.desc.UpdateValidator)
	if !ok {
		return
	}

	rec, err := c.desc.Service.Update(r.Context(), subject, id, payload)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}
	if rec == nil {
		c.api.Err(w, r, c.desc.ErrNotFound)
		return
	}

	c.api.Respond(w, r, http.StatusOK, kithttp.Envelope{
		Success: true,
		Message: c.singular() + " updated successfully",
		Data:    rec,
	})
}

func (c *Controller) handleDelete(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(w, r)
	if !ok {
		return
	}

	id, err := c.recordID(r)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	deleted, err := c.desc.Service.Delete(r.Context(), subject, id)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}
	if !deleted {
		c.api.Err(w, r, c.desc.ErrNotFound)
		return
	}

	c.api.Respond(w, r, http.StatusOK, kithttp.Envelope{
		Success: true,
		Message: c.singular() + " deleted successfully",
	})
}

func (c *Controller) handleToggle(w http.ResponseWriter, r *http.Request) {
	subject, ok := c.subject(w, r)
	if !ok {
		return
	}

	id, err := c.recordID(r)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}

	rec, err := c.desc.Service.Toggle(r.Context(), subject, id, c.desc.ToggleField)
	if err != nil {
		c.api.Err(w, r, err)
		return
	}
	if rec == nil {
		c.api.Err(w, r, c.desc.ErrNotFound)
		return
	}

	c.api.Respond(w, r, http.StatusOK, kithttp.Envelope{
		Success: true,
		Message: c.singular() + " " + c.desc.ToggleField + " toggled",
		Data:    rec,
	})
}

// subject resolves the verified caller and requires the URL's userID segment
// to name the same subject. The comparison happens before any store access;
// a mismatched or unparseable URL subject is a 403, never a lookup.
func (c *Controller) subject(w http.ResponseWriter, r *http.Request) (taskd.ID, bool) {
	subject, err := authorization.SubjectFromContext(r.Context())
	if err != nil {
		c.api.Err(w, r, err)
		return taskd.InvalidID(), false
	}

	urlSubject, err := taskd.IDFromString(chi.URLParam(r, "userID"))
	if err != nil || urlSubject != subject {
		c.api.Err(w, r, errSubjectMismatch)
		return taskd.InvalidID(), false
	}

	return subject, true
}

// recordID parses the {id} segment. An unparseable ID cannot name an owned
// record, so it reports the same not-found as a missing one.
func (c *Controller) recordID(r *http.Request) (taskd.ID, error) {
	id, err := taskd.IDFromString(chi.URLParam(r, "id"))
	if err != nil {
		return taskd.InvalidID(), c.desc.ErrNotFound
	}

	return id, nil
}

// payload decodes and validates a write body. A false return means the
// response has been written.
func (c *Controller) payload(w http.ResponseWriter, r *http.Request, v *PayloadValidator) (map[string]interface{}, bool) {
	payload := map[string]interface{}{}
	if err := c.api.DecodeJSON(r.Body, &payload); err != nil {
		c.api.Err(w, r, err)
		return nil, false
	}

	if v != nil {
		if err := v.Validate(payload); err != nil {
			c.api.Err(w, r, err)
			return nil, false
		}
	}

	return payload, true
}

func (c *Controller) parseFilter(query url.Values) (Filter, error) {
	if c.desc.ParseFilter != nil {
		return c.desc.ParseFilter(query)
	}

	return ParseRangeFilter(query)
}

// ParseRangeFilter reads the limit and offset parameters shared by every
// resource's list endpoint.
func ParseRangeFilter(query url.Values) (Filter, error) {
	var f Filter

	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return f, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "limit must be a non-negative integer",
			}
		}
		f.Limit = v
	}

	if raw := query.Get("offset"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return f, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "offset must be a non-negative integer",
			}
		}
		f.Offset = v
	}

	return f, nil
}

func (c *Controller) singular() string {
	return strings.TrimSuffix(c.desc.Name, "s")
}
