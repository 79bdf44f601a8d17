package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/elonfeng/clubradar/internal/store"
	"github.com/elonfeng/clubradar/pkg/club"
	"github.com/elonfeng/clubradar/pkg/engine"
	"github.com/elonfeng/clubradar/pkg/server"
	"github.com/elonfeng/clubradar/pkg/source"
)

func testResult() *engine.Result {
	snap := &source.Snapshot{
		Clubs: club.NewDirectory([]club.Club{
			{ID: 1, Name: "Coding Club", Category: "technical", Keywords: []string{"coding"}, Activities: []string{"hackathons"}},
			{ID: 2, Name: "Robotics", Category: "technical", Keywords: []string{"robotics"}, Activities: []string{"hackathons"}},
			{ID: 3, Name: "Rhythm", Category: "performing_arts", Keywords: []string{"dance"}},
		}),
		Events: []club.Event{{ID: 1, ClubID: 2, Name: "Bot wars", Participants: 80, ImpactScore: 8}},
		Votes:  &club.VoteTally{TotalVotes: 5, Categories: map[string]map[string]int{"best": {"2": 5}}},
		Social: map[string]club.SocialRecord{
			"club_1": {ClubID: 1, SocialMedia: map[string]club.PlatformProfile{"instagram": {Followers: "900"}}},
		},
	}
	r, err := engine.New(engine.Options{}).Run(context.Background(), snap)
	Expect(err).NotTo(HaveOccurred())
	return r
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

var _ = Describe("Server", func() {
	var (
		srv    *server.Server
		router http.Handler
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		srv = server.New(nil, 0)
		router = srv.Handler()
	})

	Context("before the first run", func() {
		It("reports healthy", func() {
			w := get(router, "/health")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)).NotTo(HaveKey("run_id"))
		})

		It("returns 503 for queries", func() {
			Expect(get(router, "/api/v1/rankings").Code).To(Equal(http.StatusServiceUnavailable))
			Expect(get(router, "/api/v1/dashboard").Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("returns 503 for runs without a store", func() {
			Expect(get(router, "/api/v1/runs").Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Context("with a result", func() {
		var result *engine.Result

		BeforeEach(func() {
			result = testResult()
			srv.SetResult(result)
		})

		It("exposes the run id on health", func() {
			resp := decode(get(router, "/health"))
			Expect(resp["run_id"]).NotTo(BeEmpty())
		})

		It("lists, filters and searches clubs", func() {
			Expect(decode(get(router, "/api/v1/clubs"))["count"]).To(BeNumerically("==", 3))
			Expect(decode(get(router, "/api/v1/clubs?category=technical"))["count"]).To(BeNumerically("==", 2))
			Expect(decode(get(router, "/api/v1/clubs?q=rhythm"))["count"]).To(BeNumerically("==", 1))
			Expect(decode(get(router, "/api/v1/clubs?activity=hackathons"))["count"]).To(BeNumerically("==", 2))
		})

		It("returns one club", func() {
			w := get(router, "/api/v1/clubs/2")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["name"]).To(Equal("Robotics"))
		})

		It("rejects bad and unknown ids", func() {
			Expect(get(router, "/api/v1/clubs/abc").Code).To(Equal(http.StatusBadRequest))
			Expect(get(router, "/api/v1/clubs/99").Code).To(Equal(http.StatusNotFound))
			Expect(get(router, "/api/v1/analytics/99").Code).To(Equal(http.StatusNotFound))
			Expect(get(router, "/api/v1/clubs/99/similar").Code).To(Equal(http.StatusNotFound))
		})

		It("returns similar clubs", func() {
			resp := decode(get(router, "/api/v1/clubs/1/similar"))
			Expect(resp["count"]).To(BeNumerically("==", 1))
		})

		It("ranks with the run model and limits the list", func() {
			w := get(router, "/api/v1/rankings?limit=2")
			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp["model"]).To(Equal("comprehensive"))
			Expect(resp["count"]).To(BeNumerically("==", 2))

			data := resp["data"].([]any)
			first := data[0].(map[string]any)
			Expect(first["rank"]).To(BeNumerically("==", 1))
			Expect(first["club_id"]).To(BeNumerically("==", 1))
		})

		It("ranks with another model on request", func() {
			resp := decode(get(router, "/api/v1/rankings?model=award"))
			Expect(resp["model"]).To(Equal("award"))
			Expect(resp["weights"]).To(HaveKey("voting"))
			first := resp["data"].([]any)[0].(map[string]any)
			Expect(first["club_id"]).To(BeNumerically("==", 2))

			Expect(get(router, "/api/v1/rankings?model=bogus").Code).To(Equal(http.StatusBadRequest))
		})

		It("returns groups and clusters", func() {
			resp := decode(get(router, "/api/v1/groups"))
			Expect(resp["count"]).To(BeNumerically("==", 2))

			w := get(router, "/api/v1/groups?clusters=true")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)).To(HaveKey("data"))
		})

		It("ranks inside a group", func() {
			w := get(router, "/api/v1/rankings/groups/Technical%20%26%20Innovation")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["count"]).To(BeNumerically("==", 2))

			Expect(get(router, "/api/v1/rankings/groups/Nope").Code).To(Equal(http.StatusNotFound))
		})

		It("returns analytics and the dashboard", func() {
			w := get(router, "/api/v1/analytics/2")
			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp["event_summary"]).To(HaveKeyWithValue("total_events", BeNumerically("==", 1)))
			Expect(resp["votes"]).To(HaveKeyWithValue("best", BeNumerically("==", 5)))

			dash := decode(get(router, "/api/v1/dashboard"))
			Expect(dash["model"]).To(Equal("comprehensive"))
			Expect(dash["top_clubs"]).To(HaveLen(3))

			stats := decode(get(router, "/api/v1/statistics"))
			Expect(stats["total_clubs"]).To(BeNumerically("==", 3))
		})
	})

	Context("with a store", func() {
		It("lists persisted runs", func() {
			st, err := store.New(filepath.Join(GinkgoT().TempDir(), "runs.db"))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(st.Close)

			result := testResult()
			Expect(st.SaveRun(context.Background(), result.Record())).To(Succeed())

			router := server.New(st, 0).Handler()
			w := get(router, "/api/v1/runs?limit=5")
			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp["count"]).To(BeNumerically("==", 1))
			first := resp["data"].([]any)[0].(map[string]any)
			Expect(first["model"]).To(Equal("comprehensive"))
			Expect(first["leader_club_id"]).To(BeNumerically("==", 1))
		})
	})
})
