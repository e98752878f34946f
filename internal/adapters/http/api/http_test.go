package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/facet/internal/adapters/http/api"
	repository "github.com/okian/facet/internal/adapters/repository"
	service "github.com/okian/facet/internal/app"
	"github.com/okian/facet/internal/auth"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps scripts the service surface behind the handlers.
type mockDeps struct {
	submitResult service.SubmitCaptureResult
	submitErr    error
	stats        session.Statistics
	statsErr     error
	linkErr      error
	sessions     []model.CaptureSession
	sessionByID  model.CaptureSession
	byAssessErr  error
	image        []byte
	imageErr     error
	enrollErr    error
	attempt      model.AuthenticationAttempt
	authErr      error
	startErr     error
	stopSummary  service.MonitorSummary
	stopErr      error
	monStatus    service.MonitorStatus

	lastSubmit  service.SubmitCaptureRequest
	lastMonitor string
	lastLink    struct {
		sessionID, assessmentID string
		endTime                 time.Time
	}
}

func (m *mockDeps) SubmitCapture(_ context.Context, req service.SubmitCaptureRequest) (service.SubmitCaptureResult, error) {
	m.lastSubmit = req
	return m.submitResult, m.submitErr
}

func (m *mockDeps) GetStatistics(_ context.Context, _ string) (session.Statistics, error) {
	return m.stats, m.statsErr
}

func (m *mockDeps) LinkSession(_ context.Context, sessionID, assessmentID string, endTime time.Time) error {
	m.lastLink.sessionID = sessionID
	m.lastLink.assessmentID = assessmentID
	m.lastLink.endTime = endTime
	return m.linkErr
}

func (m *mockDeps) SessionsBySubject(_ context.Context, _ string) ([]model.CaptureSession, error) {
	return m.sessions, nil
}

func (m *mockDeps) SessionByAssessment(_ context.Context, _ string) (model.CaptureSession, error) {
	return m.sessionByID, m.byAssessErr
}

func (m *mockDeps) GetImage(_ context.Context, _ string) ([]byte, error) {
	return m.image, m.imageErr
}

func (m *mockDeps) Enroll(_ context.Context, _ string, _ []float64) error {
	return m.enrollErr
}

func (m *mockDeps) Authenticate(_ context.Context, subjectID string) (model.AuthenticationAttempt, error) {
	attempt := m.attempt
	attempt.ClaimedSubjectID = subjectID
	return attempt, m.authErr
}

func (m *mockDeps) StartMonitoring(_ context.Context, subjectID string) error {
	m.lastMonitor = subjectID
	return m.startErr
}

func (m *mockDeps) StopMonitoring(_ context.Context) (service.MonitorSummary, error) {
	return m.stopSummary, m.stopErr
}

func (m *mockDeps) MonitorStatus(_ context.Context) service.MonitorStatus {
	return m.monStatus
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "totalSessions": 2}
}

func newTestMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}).Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestCapturesEndpoint(t *testing.T) {
	Convey("Given the captures endpoint", t, func() {
		deps := &mockDeps{
			submitResult: service.SubmitCaptureResult{
				SessionID: "sess-1",
				CaptureID: "cap-1",
				Created:   true,
			},
		}
		mux := newTestMux(deps)

		body := fmt.Sprintf(`{
			"subject_id": "subject-1",
			"emotion": "happy",
			"confidence": 0.82,
			"ts": %q,
			"capture_kind": "initial"
		}`, time.Now().Format(time.RFC3339))

		Convey("When posting a valid capture", func() {
			w := doJSON(mux, http.MethodPost, "/captures", body)

			Convey("Then it responds 201 with the new session", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)

				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["status"], ShouldEqual, "recorded")
				So(resp["session_id"], ShouldEqual, "sess-1")
				So(resp["capture_id"], ShouldEqual, "cap-1")
			})

			Convey("And the wire fields reached the service", func() {
				So(deps.lastSubmit.Emotion, ShouldEqual, "happy")
				So(deps.lastSubmit.Kind, ShouldEqual, model.CaptureInitial)
				So(deps.lastSubmit.SubjectID, ShouldEqual, "subject-1")
			})
		})

		Convey("When the request id was already processed", func() {
			deps.submitResult = service.SubmitCaptureResult{SessionID: "sess-1", Duplicate: true}
			w := doJSON(mux, http.MethodPost, "/captures", body)

			Convey("Then it responds 200 duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When posting malformed JSON", func() {
			w := doJSON(mux, http.MethodPost, "/captures", `{not json`)

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting without an emotion", func() {
			w := doJSON(mux, http.MethodPost, "/captures", `{"subject_id":"subject-1","confidence":0.5,"ts":"2026-01-02T15:04:05Z","capture_kind":"initial"}`)

			Convey("Then it responds 400 naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "emotion")
			})
		})

		Convey("When opening a session without a subject", func() {
			w := doJSON(mux, http.MethodPost, "/captures", `{"emotion":"happy","confidence":0.5,"ts":"2026-01-02T15:04:05Z","capture_kind":"initial"}`)

			Convey("Then it responds 400 naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "subject_id")
			})
		})

		Convey("When appending to a session without a subject", func() {
			deps.submitResult = service.SubmitCaptureResult{SessionID: "sess-1", CaptureID: "cap-2"}
			w := doJSON(mux, http.MethodPost, "/captures", `{"session_id":"sess-1","emotion":"happy","confidence":0.5,"ts":"2026-01-02T15:04:05Z","capture_kind":"during_test"}`)

			Convey("Then the session id suffices", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When posting without a confidence", func() {
			w := doJSON(mux, http.MethodPost, "/captures", `{"subject_id":"subject-1","emotion":"happy","ts":"2026-01-02T15:04:05Z","capture_kind":"initial"}`)

			Convey("Then it responds 400 naming the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "confidence")
			})
		})

		Convey("When posting a literal zero confidence", func() {
			w := doJSON(mux, http.MethodPost, "/captures", `{"subject_id":"subject-1","emotion":"neutral","confidence":0,"ts":"2026-01-02T15:04:05Z","capture_kind":"initial"}`)

			Convey("Then it is accepted as present", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.lastSubmit.Confidence, ShouldEqual, 0)
			})
		})

		Convey("When posting with a bad timestamp", func() {
			w := doJSON(mux, http.MethodPost, "/captures", `{"subject_id":"subject-1","emotion":"happy","confidence":0.5,"ts":"yesterday","capture_kind":"initial"}`)

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "RFC3339")
			})
		})

		Convey("When the service rejects the capture semantics", func() {
			deps.submitErr = &session.ValidationError{Field: "confidence"}
			w := doJSON(mux, http.MethodPost, "/captures", body)

			Convey("Then it responds 400 with the offending field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "confidence")
			})
		})

		Convey("When the session does not exist", func() {
			deps.submitErr = repository.ErrSessionNotFound
			w := doJSON(mux, http.MethodPost, "/captures", body)

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When using the wrong method", func() {
			w := doJSON(mux, http.MethodGet, "/captures", "")

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSessionsEndpoint(t *testing.T) {
	Convey("Given the sessions endpoint", t, func() {
		minutes := 6
		deps := &mockDeps{
			stats: session.Statistics{
				TotalCaptures:       2,
				EmotionCounts:       map[string]int{"happy": 2},
				DominantEmotion:     &session.DominantEmotion{Emotion: "happy", Count: 2},
				AverageConfidence:   0.66,
				TestDurationMinutes: &minutes,
			},
		}
		mux := newTestMux(deps)

		Convey("When fetching statistics", func() {
			w := doJSON(mux, http.MethodGet, "/sessions/sess-1/stats", "")

			Convey("Then the aggregate shape is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var stats session.Statistics
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats.TotalCaptures, ShouldEqual, 2)
				So(stats.DominantEmotion.Emotion, ShouldEqual, "happy")
				So(*stats.TestDurationMinutes, ShouldEqual, 6)
			})
		})

		Convey("When fetching statistics for a missing session", func() {
			deps.statsErr = repository.ErrSessionNotFound
			w := doJSON(mux, http.MethodGet, "/sessions/ghost/stats", "")

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When linking an assessment", func() {
			w := doJSON(mux, http.MethodPut, "/sessions/sess-1/assessment",
				`{"assessment_id":"assessment-9","end_ts":"2026-01-02T15:04:05Z"}`)

			Convey("Then the link is applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLink.sessionID, ShouldEqual, "sess-1")
				So(deps.lastLink.assessmentID, ShouldEqual, "assessment-9")
				So(deps.lastLink.endTime.Format(time.RFC3339), ShouldEqual, "2026-01-02T15:04:05Z")
			})
		})

		Convey("When linking without an assessment id", func() {
			w := doJSON(mux, http.MethodPut, "/sessions/sess-1/assessment", `{}`)

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When linking without an end time", func() {
			before := time.Now()
			w := doJSON(mux, http.MethodPut, "/sessions/sess-1/assessment", `{"assessment_id":"assessment-9"}`)

			Convey("Then the server clock closes the window", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLink.endTime, ShouldHappenOnOrAfter, before)
			})
		})

		Convey("When hitting an unknown session action", func() {
			w := doJSON(mux, http.MethodGet, "/sessions/sess-1/captures", "")

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestLookupEndpoints(t *testing.T) {
	Convey("Given the lookup endpoints", t, func() {
		now := time.Now()
		deps := &mockDeps{
			sessions: []model.CaptureSession{
				{ID: "sess-2", SubjectID: "subject-1", StartTime: now},
				{ID: "sess-1", SubjectID: "subject-1", StartTime: now.Add(-time.Hour)},
			},
			sessionByID: model.CaptureSession{ID: "sess-1", LinkedAssessmentID: "assessment-9"},
			image:       []byte{0xff, 0xd8, 0xff, 0xe0},
		}
		mux := newTestMux(deps)

		Convey("When listing a subject's sessions", func() {
			w := doJSON(mux, http.MethodGet, "/subjects/subject-1/sessions", "")

			Convey("Then the history is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var sessions []model.CaptureSession
				So(json.Unmarshal(w.Body.Bytes(), &sessions), ShouldBeNil)
				So(len(sessions), ShouldEqual, 2)
				So(sessions[0].ID, ShouldEqual, "sess-2")
			})
		})

		Convey("When the subjects path is malformed", func() {
			w := doJSON(mux, http.MethodGet, "/subjects/subject-1/other", "")

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When resolving an assessment", func() {
			w := doJSON(mux, http.MethodGet, "/assessments/assessment-9/session", "")

			Convey("Then the linked session is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"sess-1"`)
			})
		})

		Convey("When the assessment is not linked", func() {
			deps.byAssessErr = repository.ErrSessionNotFound
			w := doJSON(mux, http.MethodGet, "/assessments/ghost/session", "")

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When fetching a stored image", func() {
			w := doJSON(mux, http.MethodGet, "/images/img-1", "")

			Convey("Then the bytes come back with a sniffed content type", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.Bytes(), ShouldResemble, []byte{0xff, 0xd8, 0xff, 0xe0})
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "image/jpeg")
			})
		})

		Convey("When fetching a missing image", func() {
			deps.imageErr = repository.ErrImageNotFound
			w := doJSON(mux, http.MethodGet, "/images/ghost", "")

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestIdentityAndAuthEndpoints(t *testing.T) {
	Convey("Given the identity endpoints", t, func() {
		deps := &mockDeps{
			attempt: model.AuthenticationAttempt{
				Distance:     0.31,
				MatchPercent: 48.33,
				Outcome:      model.OutcomeMatched,
			},
		}
		mux := newTestMux(deps)

		Convey("When enrolling a subject", func() {
			w := doJSON(mux, http.MethodPost, "/identities", `{"subject_id":"subject-1","descriptor":[0.1,0.2,0.3]}`)

			Convey("Then it responds 201", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, "enrolled")
			})
		})

		Convey("When enrolling without a descriptor", func() {
			w := doJSON(mux, http.MethodPost, "/identities", `{"subject_id":"subject-1"}`)

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When authenticating successfully", func() {
			w := doJSON(mux, http.MethodPost, "/authenticate", `{"subject_id":"subject-1"}`)

			Convey("Then the attempt is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["outcome"], ShouldEqual, "matched")
				So(resp["subject_id"], ShouldEqual, "subject-1")
				So(resp["match_percent"], ShouldEqual, 48.33)
			})
		})

		Convey("When the attempt cap is exhausted", func() {
			deps.attempt.Outcome = model.OutcomeRejected
			deps.authErr = auth.ErrAttemptsExhausted
			w := doJSON(mux, http.MethodPost, "/authenticate", `{"subject_id":"subject-1"}`)

			Convey("Then it responds 401 with the last attempt", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(w.Body.String(), ShouldContainSubstring, "rejected")
			})
		})

		Convey("When the flow times out", func() {
			deps.authErr = context.DeadlineExceeded
			w := doJSON(mux, http.MethodPost, "/authenticate", `{"subject_id":"subject-1","timeout_ms":50}`)

			Convey("Then it responds 408", func() {
				So(w.Code, ShouldEqual, http.StatusRequestTimeout)
			})
		})

		Convey("When the subject is not enrolled", func() {
			deps.authErr = repository.ErrIdentityNotFound
			w := doJSON(mux, http.MethodPost, "/authenticate", `{"subject_id":"nobody"}`)

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When authenticating without a subject id", func() {
			w := doJSON(mux, http.MethodPost, "/authenticate", `{}`)

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(&mockDeps{})

		Convey("When probing /healthz", func() {
			w := doJSON(mux, http.MethodGet, "/healthz", "")

			Convey("Then it responds 200 ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"ok"`)
			})
		})

		Convey("When fetching /stats", func() {
			w := doJSON(mux, http.MethodGet, "/stats", "")

			Convey("Then service stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "totalSessions")
			})
		})

		Convey("When scraping /metrics", func() {
			w := doJSON(mux, http.MethodGet, "/metrics", "")

			Convey("Then the exposition format is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestMonitorEndpoints(t *testing.T) {
	Convey("Given the monitor endpoints", t, func() {
		deps := &mockDeps{}
		mux := newTestMux(deps)

		Convey("When starting the monitor for a subject", func() {
			w := doJSON(mux, http.MethodPost, "/monitor/start", `{"subject_id":"subject-1"}`)

			Convey("Then it responds 202 monitoring", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"monitoring"`)
				So(deps.lastMonitor, ShouldEqual, "subject-1")
			})
		})

		Convey("When starting without a subject", func() {
			w := doJSON(mux, http.MethodPost, "/monitor/start", `{}`)

			Convey("Then it responds 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a monitor is already running", func() {
			deps.startErr = service.ErrMonitorRunning
			w := doJSON(mux, http.MethodPost, "/monitor/start", `{"subject_id":"subject-1"}`)

			Convey("Then it responds 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "monitor_running")
			})
		})

		Convey("When stopping a running monitor", func() {
			deps.stopSummary = service.MonitorSummary{
				SubjectID: "subject-1",
				SessionID: "sess-9",
				Captures:  4,
			}
			w := doJSON(mux, http.MethodPost, "/monitor/stop", `{}`)

			Convey("Then it reports the finished run", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["status"], ShouldEqual, "stopped")
				So(resp["session_id"], ShouldEqual, "sess-9")
				So(resp["captures"], ShouldEqual, 4)
			})
		})

		Convey("When stopping with no monitor running", func() {
			deps.stopErr = service.ErrMonitorNotRunning
			w := doJSON(mux, http.MethodPost, "/monitor/stop", `{}`)

			Convey("Then it responds 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, "monitor_not_running")
			})
		})

		Convey("When reading status while running", func() {
			deps.monStatus = service.MonitorStatus{
				Running:   true,
				SubjectID: "subject-1",
				SessionID: "sess-9",
				Captures:  2,
				StartedAt: time.Now(),
			}
			w := doJSON(mux, http.MethodGet, "/monitor", "")

			Convey("Then the status is reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"running":true`)
				So(w.Body.String(), ShouldContainSubstring, "sess-9")
			})
		})

		Convey("When reading status while idle", func() {
			w := doJSON(mux, http.MethodGet, "/monitor", "")

			Convey("Then running is false", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"running":false`)
			})
		})

		Convey("When requesting an unknown monitor action", func() {
			w := doJSON(mux, http.MethodPost, "/monitor/reset", `{}`)

			Convey("Then it responds 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
