package main

import (
	"context"
	"flag"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/constructum-ci/constructum/cmd/constructum-server/handlers"
	"github.com/constructum-ci/constructum/pkg/admission"
	"github.com/constructum-ci/constructum/pkg/cluster"
	"github.com/constructum-ci/constructum/pkg/configs"
	"github.com/constructum-ci/constructum/pkg/db/postgres"
	"github.com/constructum-ci/constructum/pkg/gitserver"
	"github.com/constructum-ci/constructum/pkg/logcache"
	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/objectstore"
	"github.com/constructum-ci/constructum/pkg/recovery"
	"github.com/constructum-ci/constructum/pkg/registry"
	"github.com/constructum-ci/constructum/pkg/secrets"
	"github.com/constructum-ci/constructum/pkg/supervisor"
	"github.com/constructum-ci/constructum/pkg/utils/pointer"
)

func main() {
	listen := flag.String("listen", ":8080", "address to listen on")
	kubeconfig := flag.String("kubeconfig", "", "path to kubeconfig, when not running in cluster")
	flag.Parse()

	logger := log.Default()

	conf, err := configs.Load()
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}
	if err := conf.ForServer(); err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}

	ctx := context.Background()

	database, err := postgres.New(ctx, conf.SQLConnectionURL)
	if err != nil {
		log.Fatalf("can not reach the state store: %s", err)
	}
	defer database.Close()

	archive, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:  conf.S3Endpoint,
		Region:    conf.S3Region,
		Bucket:    conf.S3Bucket,
		AccessKey: conf.S3AccessKey,
		SecretKey: conf.S3SecretKey,
	})
	if err != nil {
		log.Fatalf("can not reach the log archive: %s", err)
	}

	cache, err := logcache.New(conf.RedisURL)
	if err != nil {
		log.Fatalf("can not reach the log cache: %s", err)
	}

	var metadata secrets.MetadataStore
	if conf.VaultServer != nil {
		metadata, err = secrets.NewVaultStore(*conf.VaultServer)
		if err != nil {
			log.Fatalf("can not reach the secret store: %s", err)
		}
	}

	git := gitserver.New(*conf.GitServerURL, pointer.SafeDeref(conf.GitServerToken))

	searchPath := []string{}
	if *kubeconfig != "" {
		searchPath = append(searchPath, *kubeconfig)
	}
	clientset := cluster.ConnectToK8s(searchPath...)
	clst := cluster.Attach(cluster.WrapK8sClient(clientset), conf.Namespace)

	reg := registry.New()
	sup := supervisor.Supervisor{
		Cluster:   clst,
		Pipelines: database.Pipelines,
		Steps:     database.Steps,
		Metadata:  metadata,
		Archive:   archive,
		Cache:     cache,
		Logger:    logger,
	}
	adm := admission.Admission{
		Repositories: database.Repositories,
		Pipelines:    database.Pipelines,
		Cluster:      clst,
		Fetcher:      manifest.NewFetcher(conf.BuildCacheLocation),
		Metadata:     metadata,
		Registry:     reg,
		Supervisor:   sup,
		ClientImage:  conf.ContainerName,
		Logger:       logger,
	}

	go func() {
		if err := recovery.Start(
			ctx, logger, database.Pipelines, reg,
			adm.AssignToCluster, conf.RecoveryInterval,
		); err != nil {
			logger.Printf("recovery loop stopped: %s", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	e.POST("/api/webhook", handlers.WebhookHandler(adm))

	e.GET("/api/jobs", handlers.FindJobHandler(database.Pipelines))
	e.GET("/api/jobs/:jobId", handlers.GetJobHandler(database.Pipelines, database.Steps))
	e.GET("/api/jobs/:jobId/logs", handlers.GetJobLogHandler(
		database.Pipelines, database.Steps, cache, archive,
	))
	e.GET("/api/jobs/:jobId/steps/:stepId/logs", handlers.GetStepLogHandler(
		database.Steps, cache, archive,
	))

	e.GET("/api/repos", handlers.FindRepositoryHandler(database.Repositories))
	e.POST("/api/repos", handlers.RepositoryRegisterHandler(
		database.Repositories, git, *conf.WebhookCallbackURL,
	))
	e.GET("/api/repos/:repoId", handlers.GetRepositoryHandler(database.Repositories))
	e.DELETE("/api/repos/:repoId", handlers.RepositoryUnregisterHandler(database.Repositories, git))
	e.GET("/api/repos/:repoId/jobs", handlers.FindRepositoryJobHandler(
		database.Repositories, database.Pipelines,
	))
	e.GET("/api/known_repos", handlers.FindKnownRepositoryHandler(database.Repositories, git))

	e.GET("/api/health", handlers.HealthHandler(database))

	if err := e.Start(*listen); err != nil {
		log.Fatalf("server stopped: %s", err)
	}
}
