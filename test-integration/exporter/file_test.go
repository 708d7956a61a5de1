package integration

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/synonym-exporter/internal/status"
	"github.com/stacklok/synonym-exporter/test-integration/exporter/helpers"
)

var _ = Describe("File Source Export", func() {
	var (
		tmpDir       string
		synonymsPath string
		solr         *helpers.FakeSolr
		server       *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tmpDir = createTempDir("synonym-exporter-it-")
		synonymsPath = filepath.Join(tmpDir, "synonyms.yaml")

		solr = helpers.NewFakeSolr("products")
		solr.AddResource("english", map[string][]string{
			"stale": {"obsolete"},
		})
		helpers.WriteSynonymsYAML(synonymsPath, helpers.CreateCarBikeSynonyms())
	})

	AfterEach(func() {
		if server != nil {
			Expect(server.StopServer()).To(Succeed())
			server = nil
		}
		solr.Close()
		cleanupTempDir(tmpDir)
	})

	startServer := func(watch bool) {
		configPath := helpers.WriteConfigYAML(tmpDir, solr.URL(), "products", synonymsPath, watch,
			helpers.ExporterSpec{Name: "products-en", Resource: "english", Kind: "synonym", Interval: "1h"},
		)
		var err error
		server, err = helpers.NewServerTestHelper(ctx, configPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)
	}

	waitForComplete := func(name string) *status.ExportStatus {
		var info *status.ExportStatus
		Eventually(func() status.ExportPhase {
			export, code := server.GetExport(name)
			if code != http.StatusOK || export.Status == nil {
				return ""
			}
			info = export.Status
			return info.Phase
		}, 10*time.Second, 100*time.Millisecond).Should(Equal(status.ExportPhaseComplete))
		return info
	}

	Context("on startup", func() {
		BeforeEach(func() {
			startServer(false)
		})

		It("should replace the remote resource with the local records", func() {
			st := waitForComplete("products-en")
			Expect(st.Deleted).To(Equal(1))
			Expect(st.Upserted).To(Equal(2))
			Expect(st.LastSourceHash).NotTo(BeEmpty())

			Expect(solr.Terms("english")).To(Equal(map[string][]string{
				"car":  {"automobile", "vehicle"},
				"bike": {"bicycle"},
			}))
			Expect(solr.Reloads()).To(BeNumerically(">=", 1))
		})

		It("should list the configured exporters", func() {
			waitForComplete("products-en")

			code, body := server.Get("/v0/exports")
			Expect(code).To(Equal(http.StatusOK))

			var list struct {
				Exports []map[string]any `json:"exports"`
				Count   int              `json:"count"`
			}
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list.Count).To(Equal(1))
			Expect(list.Exports[0]["name"]).To(Equal("products-en"))
			Expect(list.Exports[0]["backend"]).To(Equal("solr_test"))
			Expect(list.Exports[0]["resource"]).To(Equal("english"))
		})

		It("should return 404 for an unknown exporter", func() {
			_, code := server.GetExport("missing")
			Expect(code).To(Equal(http.StatusNotFound))
			Expect(server.TriggerExport("missing")).To(Equal(http.StatusNotFound))
		})

		It("should export changed records when triggered manually", func() {
			first := waitForComplete("products-en")

			helpers.WriteSynonymsYAML(synonymsPath, []helpers.SynonymEntry{
				{Word: "truck", Synonyms: "lorry", Type: "synonym", Langcode: "en"},
			})
			Expect(server.TriggerExport("products-en")).To(Equal(http.StatusAccepted))

			Eventually(func() map[string][]string {
				return solr.Terms("english")
			}, 10*time.Second, 100*time.Millisecond).Should(Equal(map[string][]string{
				"truck": {"lorry"},
			}))

			Eventually(func() string {
				export, _ := server.GetExport("products-en")
				if export == nil || export.Status == nil {
					return ""
				}
				return export.Status.LastSourceHash
			}, 10*time.Second, 100*time.Millisecond).ShouldNot(Equal(first.LastSourceHash))
		})
	})

	Context("with file watching enabled", func() {
		BeforeEach(func() {
			startServer(true)
		})

		It("should export when the synonym file changes", func() {
			waitForComplete("products-en")

			helpers.WriteSynonymsYAML(synonymsPath, append(helpers.CreateCarBikeSynonyms(),
				helpers.SynonymEntry{Word: "sofa", Synonyms: "couch, settee", Type: "synonym", Langcode: "en"},
			))

			Eventually(func() map[string][]string {
				return solr.Terms("english")
			}, 10*time.Second, 100*time.Millisecond).Should(HaveKeyWithValue("sofa", []string{"couch", "settee"}))
		})

		It("should not export inactive records", func() {
			waitForComplete("products-en")

			inactive := false
			helpers.WriteSynonymsYAML(synonymsPath, []helpers.SynonymEntry{
				{Word: "car", Synonyms: "automobile", Type: "synonym", Langcode: "en"},
				{Word: "bike", Synonyms: "bicycle", Type: "synonym", Langcode: "en", Active: &inactive},
			})

			Eventually(func() map[string][]string {
				return solr.Terms("english")
			}, 10*time.Second, 100*time.Millisecond).Should(Equal(map[string][]string{
				"car": {"automobile"},
			}))
		})
	})
})
