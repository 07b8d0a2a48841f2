package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
)

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.FirmwareJob
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*models.FirmwareJob)}
}

func (m *memJobs) SaveJob(_ context.Context, job *models.FirmwareJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobs) GetJob(_ context.Context, id string) (*models.FirmwareJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return job, nil
	}
	return nil, fmt.Errorf("job %s not found", id)
}

func (m *memJobs) ListJobs(_ context.Context, opts *interfaces.JobListOptions) ([]*models.FirmwareJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FirmwareJob
	for _, job := range m.jobs {
		if opts != nil && opts.Status != "" && job.Status != opts.Status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (m *memJobs) CountJobs(_ context.Context, status models.JobStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, job := range m.jobs {
		if job.Status == status {
			count++
		}
	}
	return count, nil
}

type memGlue struct {
	latest *models.GlueArtifact
}

func (m *memGlue) SaveArtifact(_ context.Context, a *models.GlueArtifact) error {
	m.latest = a
	return nil
}
func (m *memGlue) GetArtifact(context.Context, string) (*models.GlueArtifact, error) {
	return m.latest, nil
}
func (m *memGlue) LatestArtifact(context.Context) (*models.GlueArtifact, error) {
	return m.latest, nil
}

type recordingPipeline struct {
	mu  sync.Mutex
	ran []string
}

func (p *recordingPipeline) Run(_ context.Context, job *models.FirmwareJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ran = append(p.ran, job.ID)
	return nil
}

type stubDevices struct {
	results []models.VariableUpdateResult
	err     error
}

func (s *stubDevices) TriggerOTA(context.Context, string, string) error { return nil }
func (s *stubDevices) SetVariables(context.Context, string, map[string]string) ([]models.VariableUpdateResult, error) {
	return s.results, s.err
}
func (s *stubDevices) Ping(_ context.Context, addr string) *models.DeviceStatus {
	return &models.DeviceStatus{Address: addr, Online: true, CheckedAt: time.Now()}
}

func TestGenerateFirmwareHandler_CreatesJob(t *testing.T) {
	jobs := newMemJobs()
	pipeline := &recordingPipeline{}
	h := NewGenerateHandler(pipeline, jobs, nil, arbor.NewLogger())

	body := `{"prompt": "blink the onboard LED", "device_ip": "192.168.1.50"}`
	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.GenerateFirmwareHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	jobID, _ := resp["job_id"].(string)
	require.NotEmpty(t, jobID)

	saved, err := jobs.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "blink the onboard LED", saved.Prompt)
	assert.Equal(t, models.JobStatusPending, saved.Status)

	// Pipeline runs in the background
	assert.Eventually(t, func() bool {
		pipeline.mu.Lock()
		defer pipeline.mu.Unlock()
		return len(pipeline.ran) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGenerateFirmwareHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing prompt", `{"device_ip": "192.168.1.50"}`},
		{"missing device", `{"prompt": "blink the LED"}`},
		{"short prompt", `{"prompt": "ab", "device_ip": "192.168.1.50"}`},
		{"bad json", `{`},
	}

	h := NewGenerateHandler(&recordingPipeline{}, newMemJobs(), nil, arbor.NewLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.GenerateFirmwareHandler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGenerateFirmwareHandler_MethodNotAllowed(t *testing.T) {
	h := NewGenerateHandler(&recordingPipeline{}, newMemJobs(), nil, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/generate", nil)
	rec := httptest.NewRecorder()
	h.GenerateFirmwareHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetJobHandler(t *testing.T) {
	jobs := newMemJobs()
	jobs.SaveJob(context.Background(), &models.FirmwareJob{
		ID:     "job_abc",
		Prompt: "blink",
		Status: models.JobStatusCompleted,
	})
	h := NewJobHandler(jobs, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/job_abc", nil)
	rec := httptest.NewRecorder()
	h.GetJobHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job models.FirmwareJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job_abc", job.ID)

	req = httptest.NewRequest("GET", "/api/jobs/job_missing", nil)
	rec = httptest.NewRecorder()
	h.GetJobHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobsHandler_FiltersByStatus(t *testing.T) {
	jobs := newMemJobs()
	jobs.SaveJob(context.Background(), &models.FirmwareJob{ID: "job_1", Status: models.JobStatusCompleted})
	jobs.SaveJob(context.Background(), &models.FirmwareJob{ID: "job_2", Status: models.JobStatusFailed})
	h := NewJobHandler(jobs, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs?status=failed", nil)
	rec := httptest.NewRecorder()
	h.ListJobsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Jobs  []models.FirmwareJob `json:"jobs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "job_2", resp.Jobs[0].ID)
}

func TestVariablesHandler_ListEmpty(t *testing.T) {
	h := NewVariableHandler(&memGlue{}, &stubDevices{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/variables", nil)
	rec := httptest.NewRecorder()
	h.ListVariablesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestVariablesHandler_ListLatest(t *testing.T) {
	glue := &memGlue{latest: &models.GlueArtifact{
		SourcePath: "firmware/src/ai.cpp",
		Variables: []models.VariableDeclaration{
			{Type: models.VarTypeInt, Name: "ledDelay", RawType: "int", RawName: "ledDelay"},
		},
		GeneratedAt: time.Now(),
	}}
	h := NewVariableHandler(glue, &stubDevices{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/variables", nil)
	rec := httptest.NewRecorder()
	h.ListVariablesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count  int    `json:"count"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "firmware/src/ai.cpp", resp.Source)
}

func TestVariablesHandler_Update(t *testing.T) {
	devices := &stubDevices{results: []models.VariableUpdateResult{
		{Name: "ledDelay", Updated: true},
	}}
	h := NewVariableHandler(&memGlue{}, devices, arbor.NewLogger())

	body := `{"device_ip": "192.168.1.50", "variables": {"ledDelay": "250"}}`
	req := httptest.NewRequest("POST", "/api/variables", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.UpdateVariablesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledDelay")
}

func TestVariablesHandler_UpdateDeviceError(t *testing.T) {
	devices := &stubDevices{err: fmt.Errorf("connection refused")}
	h := NewVariableHandler(&memGlue{}, devices, arbor.NewLogger())

	body := `{"device_ip": "192.168.1.50", "variables": {"ledDelay": "250"}}`
	req := httptest.NewRequest("POST", "/api/variables", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.UpdateVariablesHandler(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestVariablesHandler_UpdateValidation(t *testing.T) {
	h := NewVariableHandler(&memGlue{}, &stubDevices{}, arbor.NewLogger())

	body := `{"device_ip": "192.168.1.50", "variables": {}}`
	req := httptest.NewRequest("POST", "/api/variables", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.UpdateVariablesHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatusHandler(t *testing.T) {
	jobs := newMemJobs()
	jobs.SaveJob(context.Background(), &models.FirmwareJob{ID: "job_1", Status: models.JobStatusCompleted})
	glue := &memGlue{latest: &models.GlueArtifact{
		SourcePath:  "firmware/src/ai.cpp",
		GeneratedAt: time.Now(),
	}}

	h := NewStatusHandler(jobs, glue, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	h.GetStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string         `json:"status"`
		Jobs   map[string]int `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Jobs["completed"])
}
