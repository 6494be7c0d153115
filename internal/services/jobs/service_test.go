package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hvac-extractor/internal/async"
	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/export"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
	"github.com/joseph-ayodele/hvac-extractor/internal/pipeline"
	"github.com/joseph-ayodele/hvac-extractor/internal/repository"
)

type fakeExtractor struct {
	ds    hvac.Dataset
	err   error
	paths []string
}

func (f *fakeExtractor) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.paths = append(f.paths, req.Path)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Dataset: f.ds.Clone(), Counts: f.ds.Counts()}, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) error { return nil }

func sampleDataset() hvac.Dataset {
	ds := hvac.Empty()
	ds.VAVs = []hvac.VAV{{Tag: "VAVB5-01", Location: hvac.Ptr("Lab 101"), CFMMax: hvac.Ptr(450), CFMMin: hvac.Ptr(90)}}
	ds.Fans = []hvac.Fan{{Tag: "EF-1", CFM: hvac.Ptr(1200)}}
	return hvac.Derive(ds, hvac.DefaultPolicy())
}

func newService(t *testing.T, ex Extractor) (*Service, *repository.MemoryJobs, *fakeQueue, Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		UploadDir: filepath.Join(dir, "uploads"),
		OutputDir: filepath.Join(dir, "output"),
		Report:    export.ReportOptions{JobNumber: "2201", ProjectName: "Lab Fitout"},
	}
	repo := repository.NewMemoryJobs(nil)
	svc := NewService(repo, ex, cfg, nil)
	q := &fakeQueue{}
	svc.UseQueue(q)
	return svc, repo, q, cfg
}

func writeTemplate(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "VAVB5-01"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSubmit(t *testing.T) {
	svc, repo, q, cfg := newService(t, &fakeExtractor{})
	ctx := common.WithRequestID(context.Background(), "req-1")

	job, err := svc.Submit(ctx, SubmitRequest{
		PDF:      Upload{Filename: "../../M-101.pdf", Body: strings.NewReader("%PDF-1.4 drawing")},
		Template: &Upload{Filename: "template.XLSX", Body: strings.NewReader("xlsx bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, repository.StatusQueued, job.Status)
	assert.Equal(t, "M-101.pdf", job.Filename)
	assert.Equal(t, filepath.Join(cfg.UploadDir, job.ID.String()+"_M-101.pdf"), job.PDFPath)

	body, err := os.ReadFile(job.PDFPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 drawing", string(body))
	assert.FileExists(t, job.TemplatePath)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, job.ID, q.jobs[0].ID)
	assert.Equal(t, "req-1", q.jobs[0].RequestID)

	stored, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.PDFPath, stored.PDFPath)
}

func TestSubmitRejects(t *testing.T) {
	svc, _, q, _ := newService(t, &fakeExtractor{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"no name", SubmitRequest{PDF: Upload{Body: strings.NewReader("x")}}},
		{"not a pdf", SubmitRequest{PDF: Upload{Filename: "plans.png", Body: strings.NewReader("x")}}},
		{"empty body", SubmitRequest{PDF: Upload{Filename: "plans.pdf", Body: strings.NewReader("")}}},
		{"bad template", SubmitRequest{
			PDF:      Upload{Filename: "plans.pdf", Body: strings.NewReader("x")},
			Template: &Upload{Filename: "template.csv", Body: strings.NewReader("x")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.req)
			assert.ErrorIs(t, err, common.ErrInput)
		})
	}
	assert.Empty(t, q.jobs)
}

func TestSubmitEnqueueFailure(t *testing.T) {
	svc, _, q, _ := newService(t, &fakeExtractor{})
	q.err = async.ErrQueueClosed

	_, err := svc.Submit(context.Background(), SubmitRequest{PDF: Upload{Filename: "a.pdf", Body: strings.NewReader("x")}})
	assert.ErrorIs(t, err, async.ErrQueueClosed)
}

func TestSubmitWithoutQueue(t *testing.T) {
	svc := NewService(repository.NewMemoryJobs(nil), &fakeExtractor{}, Config{UploadDir: t.TempDir()}, nil)
	_, err := svc.Submit(context.Background(), SubmitRequest{PDF: Upload{Filename: "a.pdf", Body: strings.NewReader("x")}})
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestStatus(t *testing.T) {
	svc, _, _, _ := newService(t, &fakeExtractor{})
	ctx := context.Background()
	job, err := svc.Submit(ctx, SubmitRequest{PDF: Upload{Filename: "a.pdf", Body: strings.NewReader("x")}})
	require.NoError(t, err)

	got, err := svc.Status(ctx, " "+job.ID.String()+" ")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.Status(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.Status(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRun(t *testing.T) {
	ex := &fakeExtractor{ds: sampleDataset()}
	svc, repo, q, cfg := newService(t, ex)
	ctx := context.Background()

	job, err := svc.Submit(ctx, SubmitRequest{
		PDF:      Upload{Filename: "M-101.pdf", Body: strings.NewReader("%PDF")},
		Template: &Upload{Filename: "t.xlsx", Body: strings.NewReader(string(writeTemplate(t)))},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Run(ctx, q.jobs[0]))
	assert.Equal(t, []string{job.PDFPath}, ex.paths)

	done, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	id := job.ID.String()
	assert.Equal(t, repository.StatusCompleted, done.Status)
	assert.Equal(t, repository.StepDone, done.Step)
	assert.Equal(t, "hvac_report_"+id+".xlsx", done.ResultFile)
	assert.Equal(t, "data_"+id+".json", done.DataFile)
	assert.Equal(t, "populated_"+id+".xlsx", done.PopulatedFile)
	assert.Equal(t, 1, done.Counts[hvac.FamilyVAV])
	assert.Equal(t, 10, done.Counts[hvac.FamilyHeater])

	data, err := os.Open(filepath.Join(cfg.OutputDir, done.DataFile))
	require.NoError(t, err)
	defer data.Close()
	ds, err := export.ReadDataset(data, export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "VAVB5-01", ds.VAVs[0].Tag)

	report, err := excelize.OpenFile(filepath.Join(cfg.OutputDir, done.ResultFile))
	require.NoError(t, err)
	defer report.Close()
	assert.Contains(t, report.GetSheetList(), "VAVB5-01")
	v, err := report.GetCellValue("Summary", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Job Number: 2201", v)

	populated, err := excelize.OpenFile(filepath.Join(cfg.OutputDir, done.PopulatedFile))
	require.NoError(t, err)
	defer populated.Close()
	v, err = populated.GetCellValue("VAVB5-01", "K8")
	require.NoError(t, err)
	assert.Equal(t, "VAVB5-01", v)

	path, err := svc.OutputPath(done.ResultFile)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestRunWithoutTemplate(t *testing.T) {
	svc, repo, q, _ := newService(t, &fakeExtractor{ds: sampleDataset()})
	ctx := context.Background()
	job, err := svc.Submit(ctx, SubmitRequest{PDF: Upload{Filename: "a.pdf", Body: strings.NewReader("x")}})
	require.NoError(t, err)
	require.NoError(t, svc.Run(ctx, q.jobs[0]))

	done, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusCompleted, done.Status)
	assert.Empty(t, done.PopulatedFile)
	assert.NotEmpty(t, done.ResultFile)
}

func TestRunFailure(t *testing.T) {
	svc, repo, q, _ := newService(t, &fakeExtractor{err: common.InputError("document has no pages", nil)})
	ctx := context.Background()
	job, err := svc.Submit(ctx, SubmitRequest{PDF: Upload{Filename: "a.pdf", Body: strings.NewReader("x")}})
	require.NoError(t, err)

	err = svc.Run(ctx, q.jobs[0])
	assert.ErrorIs(t, err, common.ErrInput)

	failed, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusFailed, failed.Status)
	assert.Equal(t, repository.StepExtracting, failed.Step)
	assert.Contains(t, failed.Error, "document has no pages")
	assert.Empty(t, failed.ResultFile)
}

func TestRunUnknownJob(t *testing.T) {
	svc, _, _, _ := newService(t, &fakeExtractor{})
	err := svc.Run(context.Background(), async.Job{ID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunCancelled(t *testing.T) {
	svc, repo, q, _ := newService(t, &fakeExtractor{err: context.Canceled})
	job, err := svc.Submit(context.Background(), SubmitRequest{PDF: Upload{Filename: "a.pdf", Body: strings.NewReader("x")}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = svc.Run(ctx, q.jobs[0])
	assert.True(t, errors.Is(err, context.Canceled))

	failed, err := repo.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusFailed, failed.Status)
}

func TestOutputPath(t *testing.T) {
	svc, _, _, cfg := newService(t, &fakeExtractor{})
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "report.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfg.OutputDir), "secret.txt"), []byte("x"), 0o644))

	path, err := svc.OutputPath("report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "report.xlsx"), path)

	for _, name := range []string{"", ".", "..", "../secret.txt", "a/../../secret.txt", `..\secret.txt`, "missing.xlsx"} {
		_, err := svc.OutputPath(name)
		assert.ErrorIs(t, err, common.ErrNotFound, name)
	}
}
