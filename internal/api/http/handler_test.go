package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"devbay/internal/api/http/logstream"
	"devbay/internal/catalog"
	"devbay/internal/core/lifecycle"
	"devbay/internal/queue"
	"devbay/internal/store/alm"
	"devbay/internal/store/ism"
	"devbay/internal/store/usm"
)

// == fakes ==

type fakeIsm struct {
	records map[string]ism.InstanceRecord
	active  int
	held    map[int]struct{}
}

func (f *fakeIsm) StoreInstance(rec ism.InstanceRecord) error {
	f.records[rec.InstanceId] = rec
	return nil
}

func (f *fakeIsm) GetInstance(instanceId string) (ism.InstanceRecord, error) {
	rec, ok := f.records[instanceId]
	if !ok {
		return ism.InstanceRecord{}, ism.ErrNotFound
	}
	return rec, nil
}

func (f *fakeIsm) ListInstances() ([]ism.InstanceRecord, error) {
	out := make([]ism.InstanceRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeIsm) ListInstancesByUser(userId string) ([]ism.InstanceRecord, error) {
	var out []ism.InstanceRecord
	for _, rec := range f.records {
		if rec.UserId == userId {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeIsm) CountActiveByUser(userId string) (int, error) { return f.active, nil }

func (f *fakeIsm) HeldPorts() (map[int]struct{}, error) { return f.held, nil }

func (f *fakeIsm) ReservePorts(instanceId string, ports map[string]int) error { return nil }

func (f *fakeIsm) SetStatus(instanceId string, status ism.InstanceStatus, errorMessage string) error {
	rec, ok := f.records[instanceId]
	if !ok {
		return ism.ErrNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMessage
	f.records[instanceId] = rec
	return nil
}

func (f *fakeIsm) SetErrorMessage(instanceId string, errorMessage string) error { return nil }
func (f *fakeIsm) SetContainerId(instanceId string, containerId string) error   { return nil }
func (f *fakeIsm) SetVolumeName(instanceId string, volumeName string) error     { return nil }

func (f *fakeIsm) Remove(instanceId string) error {
	delete(f.records, instanceId)
	return nil
}

type fakeUsm struct {
	users map[string]usm.UserRecord
}

func (f *fakeUsm) StoreUser(rec usm.UserRecord) error { return nil }

func (f *fakeUsm) GetUser(userId string) (usm.UserRecord, error) {
	rec, ok := f.users[userId]
	if !ok {
		return usm.UserRecord{}, usm.ErrNotFound
	}
	return rec, nil
}

func (f *fakeUsm) ListUsers() ([]usm.UserRecord, error) { return nil, nil }

type fakeAlm struct {
	events []alm.AuditRecord
}

func (f *fakeAlm) Append(rec alm.AuditRecord) error { return nil }

func (f *fakeAlm) ListEvents(limit int) ([]alm.AuditRecord, error) {
	if limit > len(f.events) {
		limit = len(f.events)
	}
	return f.events[:limit], nil
}

type fakeCatalog struct {
	templates map[string]catalog.TemplateSpec
}

func (f *fakeCatalog) Get(name string) (catalog.TemplateSpec, error) {
	tpl, ok := f.templates[name]
	if !ok {
		return catalog.TemplateSpec{}, catalog.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeCatalog) List() []catalog.TemplateSpec {
	out := make([]catalog.TemplateSpec, 0, len(f.templates))
	for _, tpl := range f.templates {
		out = append(out, tpl)
	}
	return out
}

type fakeAllocator struct {
	available bool
}

func (f *fakeAllocator) Allocate(requested []string, held map[int]struct{}) (map[string]int, error) {
	return nil, nil
}

func (f *fakeAllocator) IsAvailable(held map[int]struct{}, count int) bool { return f.available }

func (f *fakeAllocator) Range() (int, int) { return 10000, 10999 }

type fakePublisher struct {
	subjects []string
	commands []queue.Command
}

func (f *fakePublisher) Enqueue(subject string, cmd queue.Command) error {
	f.subjects = append(f.subjects, subject)
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakePublisher) Close() {}

type fakeLifecycle struct {
	status lifecycle.StatusResult
	logs   string
	err    error
}

func (f *fakeLifecycle) Create(ctx context.Context, instanceId string) error  { return nil }
func (f *fakeLifecycle) Stop(ctx context.Context, instanceId string) error    { return nil }
func (f *fakeLifecycle) Restart(ctx context.Context, instanceId string) error { return nil }

func (f *fakeLifecycle) Delete(ctx context.Context, instanceId, actorUserId string, retainVolume bool) error {
	return nil
}

func (f *fakeLifecycle) Status(ctx context.Context, instanceId string) (lifecycle.StatusResult, error) {
	return f.status, f.err
}

func (f *fakeLifecycle) Logs(ctx context.Context, instanceId string, tailLines int) (string, error) {
	return f.logs, f.err
}

func (f *fakeLifecycle) StreamLogs(ctx context.Context, instanceId string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), f.err
}

func (f *fakeLifecycle) ForceError(instanceId string, message string) error { return nil }

// == fixture ==

type fixture struct {
	server    *httptest.Server
	ismStore  *fakeIsm
	alloc     *fakeAllocator
	publisher *fakePublisher
	life      *fakeLifecycle
}

func newFixture(t *testing.T, recs ...ism.InstanceRecord) *fixture {
	t.Helper()

	ismStore := &fakeIsm{records: map[string]ism.InstanceRecord{}, held: map[int]struct{}{}}
	for _, rec := range recs {
		ismStore.records[rec.InstanceId] = rec
	}
	alloc := &fakeAllocator{available: true}
	publisher := &fakePublisher{}
	life := &fakeLifecycle{}

	handler := NewRequestHandler(
		ismStore,
		&fakeUsm{users: map[string]usm.UserRecord{
			"user-1": {UserId: "user-1", Username: "alice", MaxInstances: 2},
		}},
		&fakeAlm{},
		&fakeCatalog{templates: map[string]catalog.TemplateSpec{
			"workbench": {Name: "workbench", Image: "workbench:1.2", Ports: map[string]int{"http": 8080}},
		}},
		alloc,
		publisher,
		life,
		zap.NewNop(),
	)
	router := NewApiRouter(handler, logstream.NewRequestHandler(life, zap.NewNop()))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &fixture{server: server, ismStore: ismStore, alloc: alloc, publisher: publisher, life: life}
}

func doRequest(t *testing.T, method, url string, body any, header map[string]string) (*http.Response, ApiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var api ApiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, api
}

// == create ==

func TestCreateInstanceAccepted(t *testing.T) {
	fix := newFixture(t)

	resp, api := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances",
		CreateInstanceRequest{UserId: "user-1", TemplateName: "workbench"}, nil)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if api.Status != "success" {
		t.Fatalf("api status = %s: %s", api.Status, api.Message)
	}
	if len(fix.publisher.subjects) != 1 || fix.publisher.subjects[0] != queue.SubjectCreate {
		t.Errorf("enqueued subjects = %v", fix.publisher.subjects)
	}
	if len(fix.ismStore.records) != 1 {
		t.Fatalf("stored records = %d, want 1", len(fix.ismStore.records))
	}
	for _, rec := range fix.ismStore.records {
		if rec.Status != ism.StatusPending {
			t.Errorf("stored status = %s, want pending", rec.Status)
		}
		if rec.UserId != "user-1" || rec.TemplateName != "workbench" {
			t.Errorf("stored record = %+v", rec)
		}
	}
}

func TestCreateInstanceValidation(t *testing.T) {
	cases := []struct {
		name    string
		request CreateInstanceRequest
		want    int
	}{
		{name: "missing user", request: CreateInstanceRequest{TemplateName: "workbench"}, want: http.StatusBadRequest},
		{name: "unknown user", request: CreateInstanceRequest{UserId: "ghost", TemplateName: "workbench"}, want: http.StatusNotFound},
		{name: "unknown template", request: CreateInstanceRequest{UserId: "user-1", TemplateName: "ghost"}, want: http.StatusNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fix := newFixture(t)
			resp, _ := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances", tc.request, nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
			if len(fix.publisher.subjects) != 0 {
				t.Error("command enqueued for a rejected request")
			}
		})
	}
}

func TestCreateInstanceQuotaReached(t *testing.T) {
	fix := newFixture(t)
	fix.ismStore.active = 2

	resp, _ := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances",
		CreateInstanceRequest{UserId: "user-1", TemplateName: "workbench"}, nil)

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if len(fix.ismStore.records) != 0 {
		t.Error("record stored despite quota rejection")
	}
}

func TestCreateInstancePortCapacity(t *testing.T) {
	fix := newFixture(t)
	fix.alloc.available = false

	resp, _ := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances",
		CreateInstanceRequest{UserId: "user-1", TemplateName: "workbench"}, nil)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if len(fix.ismStore.records) != 0 {
		t.Error("record stored despite exhausted range")
	}
}

// == stop / restart ==

func TestStopInstanceEnqueues(t *testing.T) {
	fix := newFixture(t, ism.InstanceRecord{
		InstanceId: "inst-1", UserId: "user-1", TemplateName: "workbench",
		Status: ism.StatusRunning, ContainerId: "engine-1",
	})

	resp, _ := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances/inst-1/actions/stop", nil, nil)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if rec := fix.ismStore.records["inst-1"]; rec.Status != ism.StatusPending {
		t.Errorf("status = %s, want pending", rec.Status)
	}
	if len(fix.publisher.subjects) != 1 || fix.publisher.subjects[0] != queue.SubjectStop {
		t.Errorf("enqueued subjects = %v", fix.publisher.subjects)
	}
}

func TestStopInstanceRequiresRunning(t *testing.T) {
	fix := newFixture(t, ism.InstanceRecord{
		InstanceId: "inst-1", UserId: "user-1", Status: ism.StatusStopped,
	})

	resp, _ := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances/inst-1/actions/stop", nil, nil)

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if len(fix.publisher.subjects) != 0 {
		t.Error("stop enqueued for a non-running instance")
	}
}

func TestRestartStatusPreconditions(t *testing.T) {
	cases := []struct {
		status ism.InstanceStatus
		want   int
	}{
		{ism.StatusRunning, http.StatusAccepted},
		{ism.StatusStopped, http.StatusAccepted},
		{ism.StatusPending, http.StatusConflict},
		{ism.StatusError, http.StatusConflict},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.status), func(t *testing.T) {
			fix := newFixture(t, ism.InstanceRecord{
				InstanceId: "inst-1", UserId: "user-1", Status: tc.status,
			})
			resp, _ := doRequest(t, http.MethodPost, fix.server.URL+"/v1/instances/inst-1/actions/restart", nil, nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

// == delete ==

func TestDeleteInstanceCarriesOptions(t *testing.T) {
	discard := false
	fix := newFixture(t, ism.InstanceRecord{
		InstanceId: "inst-1", UserId: "user-1", Status: ism.StatusRunning,
	})

	resp, _ := doRequest(t, http.MethodDelete,
		fix.server.URL+"/v1/instances/inst-1",
		DeleteInstanceRequest{RetainVolume: &discard},
		map[string]string{"X-User-Id": "admin-1"})

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(fix.publisher.commands) != 1 {
		t.Fatalf("enqueued commands = %v", fix.publisher.commands)
	}
	cmd := fix.publisher.commands[0]
	if cmd.RetainVolume {
		t.Error("explicit retainVolume=false dropped")
	}
	if cmd.ActorUserId != "admin-1" {
		t.Errorf("actor = %s, want admin-1", cmd.ActorUserId)
	}
}

func TestDeleteDefaultsToRetainAndOwner(t *testing.T) {
	fix := newFixture(t, ism.InstanceRecord{
		InstanceId: "inst-1", UserId: "user-1", Status: ism.StatusStopped,
	})

	resp, _ := doRequest(t, http.MethodDelete, fix.server.URL+"/v1/instances/inst-1", nil, nil)

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	cmd := fix.publisher.commands[0]
	if !cmd.RetainVolume {
		t.Error("volume retention must be the default")
	}
	if cmd.ActorUserId != "user-1" {
		t.Errorf("actor = %s, want owner user-1", cmd.ActorUserId)
	}
}

// == status / lookup ==

func TestInstanceStatusUnknownInstance(t *testing.T) {
	fix := newFixture(t)
	fix.life.err = ism.ErrNotFound

	resp, _ := doRequest(t, http.MethodGet, fix.server.URL+"/v1/instances/ghost/status", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestInstanceStatusReportsResult(t *testing.T) {
	fix := newFixture(t, ism.InstanceRecord{InstanceId: "inst-1", UserId: "user-1"})
	fix.life.status = lifecycle.StatusResult{
		Status:      ism.StatusRunning,
		ServiceUrls: map[string]string{"http": "http://localhost:10042"},
	}

	resp, api := doRequest(t, http.MethodGet, fix.server.URL+"/v1/instances/inst-1/status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload, _ := json.Marshal(api.Data)
	var status StatusResponse
	if err := json.Unmarshal(payload, &status); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if status.Status != ism.StatusRunning || status.ServiceUrls["http"] != "http://localhost:10042" {
		t.Errorf("status response = %+v", status)
	}
}

func TestInstanceLogsRejectsBadTail(t *testing.T) {
	fix := newFixture(t, ism.InstanceRecord{InstanceId: "inst-1", UserId: "user-1"})

	resp, _ := doRequest(t, http.MethodGet, fix.server.URL+"/v1/instances/inst-1/logs?tail=zero", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
