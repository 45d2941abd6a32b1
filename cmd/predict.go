package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"urban-growth/classify"
	"urban-growth/pipeline"
	"urban-growth/predictionstore"
	"urban-growth/tiling"
	"urban-growth/transport"

	"cloud.google.com/go/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const copernicusTokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"

var predictCmd = &cobra.Command{
	Use:   "predict [scene] [aoi.geojson]",
	Short: "Classify built-up pixels of a scene inside an area of interest",
	Long: `Clips the B02, B03, B04, B08 and B11 rasters of a scene to the AOI,
	classifies them tile by tile, writes a single band mask GeoTIFF and prints
	the result as JSON.

	The scene is a zip archive or directory, given as a local path or as a
	gs:// or https:// URL. Only full tiles are classified, pixels in the
	partial tiles along the bottom and right edges stay unclassified.

	Options:
		--classifier:  ndbi (spectral index, default) or remote (gRPC model server)
		--tileSize:    Classifier input edge in pixels
		--publishDir:  Local directory for results, unless --gcsBucket is set
		--tileReport:  Optional per tile report, .parquet or .csv
		--postgresURL: Optional database recording each prediction`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		aoi, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		p, cleanup, err := buildPipeline(ctx, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		res := p.Run(ctx, pipeline.Request{SceneLocator: args[0], AOI: aoi, JobID: viper.GetString("jobID")})
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return res.Err
	},
}

func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		TileSize:         viper.GetInt("tileSize"),
		ReflectanceScale: viper.GetFloat64("reflectanceScale"),
		PixelEdgeM:       viper.GetFloat64("pixelEdge"),
		Confidence:       viper.GetFloat64("confidence"),
		NoData:           viper.GetFloat64("nodata"),
		Workers:          viper.GetInt("workers"),
		TileReportPath:   viper.GetString("tileReport"),
		PreviewPath:      viper.GetString("preview"),
		S2Level:          viper.GetInt("s2Lvl"),
	}
}

// buildPipeline wires the configured components. cleanup releases network
// clients and the database.
func buildPipeline(ctx context.Context, scene string) (*pipeline.Pipeline, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logrus.Error(err)
			}
		}
	}

	p := &pipeline.Pipeline{
		Config:  pipelineConfig(),
		WorkDir: viper.GetString("workDir"),
	}

	var gcs *storage.Client
	bucket := viper.GetString("gcsBucket")
	if bucket != "" || strings.HasPrefix(scene, "gs://") || strings.Contains(scene, "storage.googleapis.com") {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create storage client: %w", err)
		}
		gcs = client
		closers = append(closers, client.Close)
	}

	p.Fetcher = transport.NewFetcher(transport.FetchOptions{
		GCS:          gcs,
		ClientID:     viper.GetString("clientID"),
		ClientSecret: viper.GetString("clientSecret"),
		TokenURL:     viper.GetString("tokenURL"),
	})
	if bucket != "" {
		p.Publisher = transport.GCSPublisher{
			Client: gcs,
			Bucket: bucket,
			Prefix: viper.GetString("gcsPrefix"),
			Public: viper.GetBool("publicResults"),
		}
	} else {
		p.Publisher = transport.LocalPublisher{Dir: viper.GetString("publishDir")}
	}

	switch name := viper.GetString("classifier"); name {
	case "ndbi":
		p.Classifier = classify.NDBI{
			Threshold: viper.GetFloat64("ndbiThreshold"),
			MaxNDVI:   viper.GetFloat64("maxNDVI"),
		}
	case "remote":
		remote, err := classify.DialRemote(
			viper.GetString("classifierAddr"),
			viper.GetDuration("classifierTimeout"),
			float32(viper.GetFloat64("probThreshold")),
		)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		p.Classifier = remote
		closers = append(closers, remote.Close)
	default:
		cleanup()
		return nil, func() {}, fmt.Errorf("unknown classifier %q, choose ndbi or remote", name)
	}

	if connStr := viper.GetString("postgresURL"); connStr != "" {
		store, err := predictionstore.NewPostgresStore(ctx, connStr)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		p.Recorder = store
		closers = append(closers, store.Close)
	}

	if !viper.GetBool("quiet") {
		bar := progressbar.Default(-1, "Classifying tiles")
		p.OnTile = func(tiling.Tile) {
			_ = bar.Add(1)
		}
		closers = append(closers, bar.Finish)
	}
	return p, cleanup, nil
}

func init() {
	rootCmd.AddCommand(predictCmd)
	d := pipeline.DefaultConfig()
	f := predictCmd.Flags()

	f.StringP("jobID", "j", "", "Job id naming the outputs, derived from the scene name when empty")
	f.IntP("tileSize", "t", d.TileSize, "Classifier input edge in pixels")
	f.Float64("reflectanceScale", d.ReflectanceScale, "Divisor mapping digital numbers to reflectance")
	f.Float64("pixelEdge", d.PixelEdgeM, "Ground pixel edge in metres used for areas")
	f.Float64("confidence", d.Confidence, "Confidence reported with each prediction")
	f.Float64("nodata", d.NoData, "Value written outside the AOI")
	f.IntP("workers", "n", d.Workers, "Concurrent classifier calls")
	f.Int("s2Lvl", d.S2Level, "S2 cell level of the tile report")
	f.String("tileReport", "", "Write a per tile report, .parquet or .csv")
	f.String("preview", "", "Write a PNG preview of the mask")
	f.String("workDir", "", "Directory for downloads and intermediate files, temporary when empty")
	f.BoolP("quiet", "q", false, "Hide the progress bar")

	f.StringP("classifier", "c", "ndbi", "Classifier: ndbi or remote")
	f.Float64("ndbiThreshold", 0, "NDBI above which a pixel is built-up")
	f.Float64("maxNDVI", 0.2, "NDVI at or above which a pixel is vegetation")
	f.String("classifierAddr", "localhost:50051", "Address of the remote segmentation server")
	f.Duration("classifierTimeout", 30*time.Second, "Timeout of one remote tile call")
	f.Float64("probThreshold", 0.5, "Probability above which a remote prediction is built-up")

	f.String("publishDir", "results", "Local directory for published masks")
	f.String("gcsBucket", "", "Publish masks to this GCS bucket instead of publishDir")
	f.String("gcsPrefix", "predictions", "Object prefix inside gcsBucket")
	f.Bool("publicResults", false, "Make published GCS objects publicly readable")

	f.String("clientID", "", "OAuth2 client id for HTTP scene downloads")
	f.String("clientSecret", "", "OAuth2 client secret for HTTP scene downloads")
	f.String("tokenURL", copernicusTokenURL, "OAuth2 token endpoint for HTTP scene downloads")

	bindFlags(predictCmd,
		"jobID", "tileSize", "reflectanceScale", "pixelEdge", "confidence", "nodata",
		"workers", "s2Lvl", "tileReport", "preview", "workDir", "quiet",
		"classifier", "ndbiThreshold", "maxNDVI", "classifierAddr", "classifierTimeout", "probThreshold",
		"publishDir", "gcsBucket", "gcsPrefix", "publicResults",
		"clientID", "clientSecret", "tokenURL",
	)
	for key, env := range map[string]string{
		"clientID":     "COPERNICUS_CLIENT_ID",
		"clientSecret": "COPERNICUS_CLIENT_SECRET",
	} {
		if err := viper.BindEnv(key, "URBAN_"+strings.ToUpper(key), env); err != nil {
			logrus.Exit(1)
		}
	}
}
