package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"devbay/internal/catalog"
	"devbay/internal/core/lifecycle"
	"devbay/internal/portalloc"
	"devbay/internal/queue"
	"devbay/internal/store/alm"
	"devbay/internal/store/ism"
	"devbay/internal/store/usm"
	"devbay/internal/utils"
)

const defaultLogTail = 100

func NewRequestHandler(
	ismHandler ism.IsmHandler,
	usmHandler usm.UsmHandler,
	almHandler alm.AlmHandler,
	catalogHandler catalog.CatalogHandler,
	allocator portalloc.AllocatorHandler,
	publisher queue.PublisherHandler,
	lifecycleHandler lifecycle.LifecycleHandler,
	log *zap.Logger,
) *RequestHandler {
	return &RequestHandler{
		ismHandler:       ismHandler,
		usmHandler:       usmHandler,
		almHandler:       almHandler,
		catalogHandler:   catalogHandler,
		allocator:        allocator,
		publisher:        publisher,
		lifecycleHandler: lifecycleHandler,
		log:              log,
	}
}

type RequestHandler struct {
	ismHandler       ism.IsmHandler
	usmHandler       usm.UsmHandler
	almHandler       alm.AlmHandler
	catalogHandler   catalog.CatalogHandler
	allocator        portalloc.AllocatorHandler
	publisher        queue.PublisherHandler
	lifecycleHandler lifecycle.LifecycleHandler
	log              *zap.Logger
}

// CreateInstance godoc
// @Summary Create an instance
// @Description validate quota and capacity, record the instance and enqueue its provisioning
// @Tags instances
// @Accept json
// @Produce json
// @Param request body CreateInstanceRequest true "Instance Spec"
// @Success 202 {object} ApiResponse
// @Router /v1/instances [post]
func (h *RequestHandler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	// decode request
	var req CreateInstanceRequest
	if err := h.decodeRequestBody(r, &req); err != nil {
		h.respondFail(w, http.StatusBadRequest, "invalid json: "+err.Error(), nil)
		return
	}
	if req.UserId == "" || req.TemplateName == "" {
		h.respondFail(w, http.StatusBadRequest, "userId and templateName are required", nil)
		return
	}

	// preconditions: owner, template, quota, capacity
	user, err := h.usmHandler.GetUser(req.UserId)
	if err != nil {
		h.respondFail(w, http.StatusNotFound, "unknown user: "+req.UserId, nil)
		return
	}
	tpl, err := h.catalogHandler.Get(req.TemplateName)
	if err != nil {
		h.respondFail(w, http.StatusNotFound, "unknown template: "+req.TemplateName, nil)
		return
	}
	active, err := h.ismHandler.CountActiveByUser(user.UserId)
	if err != nil {
		h.respondFail(w, http.StatusInternalServerError, "quota check failed: "+err.Error(), nil)
		return
	}
	if user.MaxInstances > 0 && active >= user.MaxInstances {
		h.respondFail(w, http.StatusConflict, "instance quota reached", nil)
		return
	}
	held, err := h.ismHandler.HeldPorts()
	if err != nil {
		h.respondFail(w, http.StatusInternalServerError, "capacity check failed: "+err.Error(), nil)
		return
	}
	if !h.allocator.IsAvailable(held, len(tpl.Ports)) {
		h.respondFail(w, http.StatusServiceUnavailable, "port range exhausted", nil)
		return
	}

	// record + enqueue
	instanceId := utils.NewUlid()
	displayName := req.DisplayName
	if displayName == "" {
		generated, err := utils.GenerateRandName()
		if err != nil {
			h.respondFail(w, http.StatusInternalServerError, "generate name failed: "+err.Error(), nil)
			return
		}
		displayName = generated
	}
	now := time.Now().UTC()
	rec := ism.InstanceRecord{
		InstanceId:      instanceId,
		UserId:          user.UserId,
		TemplateName:    tpl.Name,
		DisplayName:     displayName,
		Status:          ism.StatusPending,
		EnvironmentVars: req.EnvironmentVars,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.ismHandler.StoreInstance(rec); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "store instance failed: "+err.Error(), nil)
		return
	}
	if err := h.publisher.Enqueue(queue.SubjectCreate, queue.Command{
		InstanceId:  instanceId,
		ActorUserId: user.UserId,
	}); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "enqueue failed: "+err.Error(), CreateInstanceResponse{Id: instanceId})
		return
	}

	// encode response
	h.respondSuccess(w, http.StatusAccepted, "instance accepted", CreateInstanceResponse{Id: instanceId})
}

// StopInstance godoc
// @Summary Stop an instance
// @Description enqueue a graceful stop of a running instance
// @Tags instances
// @Param instanceId path string true "Instance ID"
// @Success 202 {object} ApiResponse
// @Router /v1/instances/{instanceId}/actions/stop [post]
func (h *RequestHandler) StopInstance(w http.ResponseWriter, r *http.Request) {
	instanceId := chi.URLParam(r, "instanceId")
	if instanceId == "" {
		h.respondFail(w, http.StatusBadRequest, "missing instanceId", nil)
		return
	}

	rec, err := h.ismHandler.GetInstance(instanceId)
	if err != nil {
		h.respondNotFoundOrError(w, instanceId, err)
		return
	}
	if rec.Status != ism.StatusRunning {
		h.respondFail(w, http.StatusConflict, "instance is not running", ActionResponse{Id: instanceId})
		return
	}

	if err := h.ismHandler.SetStatus(instanceId, ism.StatusPending, ""); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "update status failed: "+err.Error(), ActionResponse{Id: instanceId})
		return
	}
	if err := h.publisher.Enqueue(queue.SubjectStop, queue.Command{
		InstanceId:  instanceId,
		ActorUserId: h.actorId(r, rec),
	}); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "enqueue failed: "+err.Error(), ActionResponse{Id: instanceId})
		return
	}

	h.respondSuccess(w, http.StatusAccepted, "stop accepted", ActionResponse{Id: instanceId})
}

// RestartInstance godoc
// @Summary Restart an instance
// @Description enqueue a restart of a stopped or running instance
// @Tags instances
// @Param instanceId path string true "Instance ID"
// @Success 202 {object} ApiResponse
// @Router /v1/instances/{instanceId}/actions/restart [post]
func (h *RequestHandler) RestartInstance(w http.ResponseWriter, r *http.Request) {
	instanceId := chi.URLParam(r, "instanceId")
	if instanceId == "" {
		h.respondFail(w, http.StatusBadRequest, "missing instanceId", nil)
		return
	}

	rec, err := h.ismHandler.GetInstance(instanceId)
	if err != nil {
		h.respondNotFoundOrError(w, instanceId, err)
		return
	}
	if rec.Status != ism.StatusRunning && rec.Status != ism.StatusStopped {
		h.respondFail(w, http.StatusConflict, "instance cannot be restarted in status "+string(rec.Status), ActionResponse{Id: instanceId})
		return
	}

	if err := h.ismHandler.SetStatus(instanceId, ism.StatusPending, ""); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "update status failed: "+err.Error(), ActionResponse{Id: instanceId})
		return
	}
	if err := h.publisher.Enqueue(queue.SubjectRestart, queue.Command{
		InstanceId:  instanceId,
		ActorUserId: h.actorId(r, rec),
	}); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "enqueue failed: "+err.Error(), ActionResponse{Id: instanceId})
		return
	}

	h.respondSuccess(w, http.StatusAccepted, "restart accepted", ActionResponse{Id: instanceId})
}

// DeleteInstance godoc
// @Summary Delete an instance
// @Description enqueue teardown of the instance; the data volume is kept unless retainVolume is false
// @Tags instances
// @Accept json
// @Param instanceId path string true "Instance ID"
// @Param request body DeleteInstanceRequest false "Delete Options"
// @Success 202 {object} ApiResponse
// @Router /v1/instances/{instanceId} [delete]
func (h *RequestHandler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	instanceId := chi.URLParam(r, "instanceId")
	if instanceId == "" {
		h.respondFail(w, http.StatusBadRequest, "missing instanceId", nil)
		return
	}

	rec, err := h.ismHandler.GetInstance(instanceId)
	if err != nil {
		h.respondNotFoundOrError(w, instanceId, err)
		return
	}

	// the volume survives unless the caller opts out
	retainVolume := true
	if r.Body != nil && r.ContentLength != 0 {
		var req DeleteInstanceRequest
		if err := h.decodeRequestBody(r, &req); err != nil {
			h.respondFail(w, http.StatusBadRequest, "invalid json: "+err.Error(), nil)
			return
		}
		if req.RetainVolume != nil {
			retainVolume = *req.RetainVolume
		}
	}

	if err := h.publisher.Enqueue(queue.SubjectDelete, queue.Command{
		InstanceId:   instanceId,
		ActorUserId:  h.actorId(r, rec),
		RetainVolume: retainVolume,
	}); err != nil {
		h.respondFail(w, http.StatusInternalServerError, "enqueue failed: "+err.Error(), ActionResponse{Id: instanceId})
		return
	}

	h.respondSuccess(w, http.StatusAccepted, "delete accepted", ActionResponse{Id: instanceId})
}

// InstanceStatus godoc
// @Summary Instance status
// @Description report the stored status after reconciling it with the engine
// @Tags instances
// @Produce json
// @Param instanceId path string true "Instance ID"
// @Success 200 {object} ApiResponse
// @Router /v1/instances/{instanceId}/status [get]
func (h *RequestHandler) InstanceStatus(w http.ResponseWriter, r *http.Request) {
	instanceId := chi.URLParam(r, "instanceId")
	if instanceId == "" {
		h.respondFail(w, http.StatusBadRequest, "missing instanceId", nil)
		return
	}

	result, err := h.lifecycleHandler.Status(r.Context(), instanceId)
	if err != nil {
		h.respondNotFoundOrError(w, instanceId, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, "status", StatusResponse{
		Id:           instanceId,
		Status:       result.Status,
		ErrorMessage: result.ErrorMessage,
		ServiceUrls:  result.ServiceUrls,
	})
}

// ListInstances godoc
// @Summary List instances
// @Description list all instances, optionally filtered by owner
// @Tags instances
// @Produce json
// @Param userId query string false "Owner filter"
// @Success 200 {object} ApiResponse
// @Router /v1/instances [get]
func (h *RequestHandler) ListInstances(w http.ResponseWriter, r *http.Request) {
	var (
		recs []ism.InstanceRecord
		err  error
	)
	if userId := r.URL.Query().Get("userId"); userId != "" {
		recs, err = h.ismHandler.ListInstancesByUser(userId)
	} else {
		recs, err = h.ismHandler.ListInstances()
	}
	if err != nil {
		h.respondFail(w, http.StatusInternalServerError, "list failed: "+err.Error(), nil)
		return
	}

	summaries := make([]InstanceSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, InstanceSummary{
			Id:           rec.InstanceId,
			UserId:       rec.UserId,
			TemplateName: rec.TemplateName,
			DisplayName:  rec.DisplayName,
			Status:       rec.Status,
			HostPorts:    rec.HostPorts,
			CreatedAt:    rec.CreatedAt,
		})
	}

	h.respondSuccess(w, http.StatusOK, "instances", summaries)
}

// InstanceLogs godoc
// @Summary Instance logs
// @Description fetch the tail of the container log
// @Tags instances
// @Produce json
// @Param instanceId path string true "Instance ID"
// @Param tail query int false "Number of trailing lines"
// @Success 200 {object} ApiResponse
// @Router /v1/instances/{instanceId}/logs [get]
func (h *RequestHandler) InstanceLogs(w http.ResponseWriter, r *http.Request) {
	instanceId := chi.URLParam(r, "instanceId")
	if instanceId == "" {
		h.respondFail(w, http.StatusBadRequest, "missing instanceId", nil)
		return
	}

	tail := defaultLogTail
	if raw := r.URL.Query().Get("tail"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondFail(w, http.StatusBadRequest, "invalid tail: "+raw, nil)
			return
		}
		tail = parsed
	}

	logs, err := h.lifecycleHandler.Logs(r.Context(), instanceId, tail)
	if err != nil {
		h.respondNotFoundOrError(w, instanceId, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, "logs", LogsResponse{Id: instanceId, Logs: logs})
}

// ListTemplates godoc
// @Summary List templates
// @Description list the catalog entries available for new instances
// @Tags templates
// @Produce json
// @Success 200 {object} ApiResponse
// @Router /v1/templates [get]
func (h *RequestHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, http.StatusOK, "templates", h.catalogHandler.List())
}

// ListAuditEvents godoc
// @Summary List audit events
// @Description list recorded lifecycle events, newest first
// @Tags audit
// @Produce json
// @Param limit query int false "Maximum number of events"
// @Success 200 {object} ApiResponse
// @Router /v1/audit [get]
func (h *RequestHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondFail(w, http.StatusBadRequest, "invalid limit: "+raw, nil)
			return
		}
		limit = parsed
	}

	events, err := h.almHandler.ListEvents(limit)
	if err != nil {
		h.respondFail(w, http.StatusInternalServerError, "list failed: "+err.Error(), nil)
		return
	}

	h.respondSuccess(w, http.StatusOK, "audit events", events)
}

// actorId resolves who triggered the request. Authentication happens
// upstream; the trusted proxy forwards the identity in a header. The
// instance owner is the fallback.
func (h *RequestHandler) actorId(r *http.Request, rec ism.InstanceRecord) string {
	if actor := r.Header.Get("X-User-Id"); actor != "" {
		return actor
	}
	return rec.UserId
}

func (h *RequestHandler) respondNotFoundOrError(w http.ResponseWriter, instanceId string, err error) {
	if errors.Is(err, ism.ErrNotFound) {
		h.respondFail(w, http.StatusNotFound, "unknown instance: "+instanceId, nil)
		return
	}
	h.respondFail(w, http.StatusInternalServerError, "service failed: "+err.Error(), nil)
}

func (h *RequestHandler) decodeRequestBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func (h *RequestHandler) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *RequestHandler) respondSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	h.writeJson(w, statusCode, ApiResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func (h *RequestHandler) respondFail(w http.ResponseWriter, statusCode int, message string, data any) {
	h.writeJson(w, statusCode, ApiResponse{
		Status:  "fail",
		Message: message,
		Data:    data,
	})
}
