package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/logging"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/common/runtime"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/pipelines/pipeline_ingest"
	"github.com/t2bot/sample-repo/pool"
	"github.com/t2bot/sample-repo/storage"
	"github.com/t2bot/sample-repo/types"
	"github.com/t2bot/sample-repo/util"
)

func main() {
	configPath := flag.String("config", "sample-repo.yaml", "The path to the configuration")
	migrationsPath := flag.String("migrations", config.DefaultMigrationsPath, "The absolute path for the migrations folder")
	fileTypeStr := flag.String("type", string(common.FileTypeFile), "The classification to ingest under: file or memory")
	batch := flag.Bool("batch", false, "Ingest all files as one batch (file classification only, no extraction)")
	extract := flag.Bool("extract", false, "Treat each file as a zip archive and ingest its single member")
	password := flag.String("password", "", "The password for encrypted archives")
	name := flag.String("name", "", "Override the recorded name (single files only)")
	description := flag.String("description", "", "The description to record for every file")
	tags := flag.String("tags", "", "Comma separated tags to record for every file")
	flag.Parse()

	// Override config path with config for Docker users
	configEnv := os.Getenv("REPO_CONFIG")
	if configEnv != "" {
		configPath = &configEnv
	}

	config.Path = *configPath
	config.Runtime.MigrationsPath = *migrationsPath

	err := logging.Setup(
		"-",
		config.Get().General.LogColors,
		config.Get().General.JsonLogs,
		config.Get().General.LogLevel,
	)
	if err != nil {
		panic(err)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		logrus.Fatal("No files given")
	}
	if *name != "" && len(paths) > 1 {
		logrus.Fatal("-name can only be used with a single file")
	}

	fileType, err := common.ParseFileType(*fileTypeStr)
	if err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("Starting up...")
	runtime.RunStartupSequence()
	pool.Init()
	defer pool.Drain()

	store := storage.NewSampleStore(database.GetInstance(), 0)
	ingestor := pipeline_ingest.NewIngestor(store, store)
	ctx := rcontext.Initial()

	template := &types.Metadata{
		Name:        *name,
		Description: *description,
		Tags:        *tags,
		Extract:     *extract,
		Password:    *password,
	}

	startedAt := util.NowMillis()
	var records []*database.DbSample
	failed := 0
	if *batch {
		staged := make([]pipeline_ingest.StagedFile, len(paths))
		metas := make([]*types.Metadata, len(paths))
		for i, p := range paths {
			staged[i] = pipeline_ingest.StagedFile{Path: p, UploadName: filepath.Base(p)}
			metas[i] = template.Clone()
		}
		records, err = ingestor.ExecuteBatch(ctx, staged, metas)
		if err != nil {
			var itemErr *pipeline_ingest.ItemError
			if errors.As(err, &itemErr) {
				logrus.Errorf("Failed on %s", paths[itemErr.Index])
			}
			logrus.Fatal(err)
		}
	} else {
		for _, p := range paths {
			record, err := ingestor.Execute(ctx, p, filepath.Base(p), fileType, template.Clone())
			if err != nil {
				var ingestErr *pipeline_ingest.IngestError
				if errors.As(err, &ingestErr) && ingestErr.Kind == pipeline_ingest.KindDuplicate {
					logrus.Warnf("%s is already stored", p)
					continue
				}
				logrus.Errorf("Error ingesting %s: %v", p, err)
				failed++
				continue
			}
			records = append(records, record)
		}
	}

	samples := make([]*types.Sample, len(records))
	for i, r := range records {
		samples[i] = r.ToSample()
	}
	b, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Println(string(b))
	logrus.Infof("Ingested %d of %d files in %dms", len(records), len(paths), util.NowMillis()-startedAt)

	if failed > 0 {
		pool.Drain()
		os.Exit(1)
	}
}
