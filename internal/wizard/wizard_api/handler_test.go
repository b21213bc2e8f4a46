package wizard_api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"techsymposium/internal/database"
	"techsymposium/internal/imagestore"
	"techsymposium/internal/lock"
	"techsymposium/internal/logger"
	"techsymposium/internal/models"
	"techsymposium/internal/registration"
	"techsymposium/internal/registration/db"
	"techsymposium/internal/wizard"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type envelope struct {
	Success bool                `json:"success"`
	Data    wizard.Draft        `json:"data"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func setupRouter(t *testing.T) (*chi.Mux, *bun.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	require.NoError(t, database.CreateSchema(ctx, bunDB))
	_, err = bunDB.NewInsert().Model(&models.Event{ID: "evt1", Title: "Tech Conference 2025", CreatedAt: time.Now()}).Exec(ctx)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(nil)
	store := &db.DB{Bun: bunDB}
	validator := registration.NewValidator()
	fees := registration.NewFeeCalculator(100)
	regSvc := registration.NewService(store, validator, fees, log)

	disk, err := imagestore.NewDiskStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	svc := wizard.NewService(wizard.NewRedisDraftStore(client, time.Hour), validator, fees, regSvc,
		imagestore.NewUploader(disk, nil, log), lock.NewRedis(client, log), log)
	svc.Events = store

	r := chi.NewRouter()
	NewHandler(svc, 1<<20, log).RegisterRoutes(r)
	return r, bunDB
}

func send(t *testing.T, r http.Handler, method, target string, body io.Reader, contentType string) (int, envelope) {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func paymentForm(t *testing.T, content []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("paymentId", "PAY1"))
	require.NoError(t, mw.WriteField("paymentMethod", "UPI"))
	if content != nil {
		fw, err := mw.CreateFormFile("file", "proof.png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

const personal = `{"name":"Ann","phone":"1234567890","email":"ann@x.com","collegeName":"MIT","event":"evt1","eventType":"individual"}`

func TestWizardEndToEnd(t *testing.T) {
	r, bunDB := setupRouter(t)

	code, env := send(t, r, http.MethodPost, "/api/wizard", nil, "")
	require.Equal(t, http.StatusCreated, code)
	id := env.Data.ID
	assert.Equal(t, wizard.StepPersonalInfo, env.Data.Step)

	code, env = send(t, r, http.MethodPut, "/api/wizard/"+id+"/personal", strings.NewReader(personal), "application/json")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepPayment, env.Data.Step)
	assert.Equal(t, int64(100), env.Data.TotalFee)

	body, ct := paymentForm(t, pngHeader)
	code, env = send(t, r, http.MethodPost, "/api/wizard/"+id+"/payment", body, ct)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepConfirmation, env.Data.Step)
	require.NotNil(t, env.Data.Result)
	assert.Equal(t, int64(100), env.Data.Result.Payment.Amount)
	assert.True(t, strings.HasPrefix(env.Data.Result.Payment.Image, "http://localhost:8080/uploads/"))

	count, err := bunDB.NewSelect().Model((*models.Registration)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	code, env = send(t, r, http.MethodPost, "/api/wizard/"+id+"/restart", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, wizard.StepPersonalInfo, env.Data.Step)
}

func TestWizardErrorsKeepStep(t *testing.T) {
	r, _ := setupRouter(t)

	_, env := send(t, r, http.MethodPost, "/api/wizard", nil, "")
	id := env.Data.ID

	code, env := send(t, r, http.MethodPost, "/api/wizard/"+id+"/back", nil, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", env.Error)

	code, env = send(t, r, http.MethodPut, "/api/wizard/"+id+"/personal",
		strings.NewReader(strings.Replace(personal, "ann@x.com", "not-an-email", 1)), "application/json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "email")
	assert.Equal(t, wizard.StepPersonalInfo, env.Data.Step)

	code, _ = send(t, r, http.MethodPut, "/api/wizard/"+id+"/personal", strings.NewReader(personal), "application/json")
	require.Equal(t, http.StatusOK, code)

	body, ct := paymentForm(t, []byte("definitely not an image"))
	code, env = send(t, r, http.MethodPost, "/api/wizard/"+id+"/payment", body, ct)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_image", env.Error)
	assert.Equal(t, wizard.StepPayment, env.Data.Step)

	body, ct = paymentForm(t, nil)
	code, env = send(t, r, http.MethodPost, "/api/wizard/"+id+"/payment", body, ct)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "paymentImage")
}

func TestWizardUnknownDraft(t *testing.T) {
	r, _ := setupRouter(t)

	code, env := send(t, r, http.MethodGet, "/api/wizard/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "draft_not_found", env.Error)
}
