// The in-cluster pipeline client: it runs as the client workload of one
// pipeline, executes that pipeline's steps as cluster workloads, and
// exits when the pipeline record is terminal.
package main

import (
	"context"
	"log"

	"github.com/constructum-ci/constructum/pkg/cluster"
	"github.com/constructum-ci/constructum/pkg/configs"
	"github.com/constructum-ci/constructum/pkg/db/postgres"
	"github.com/constructum-ci/constructum/pkg/logcache"
	"github.com/constructum-ci/constructum/pkg/manifest"
	"github.com/constructum-ci/constructum/pkg/objectstore"
	"github.com/constructum-ci/constructum/pkg/secrets"
	"github.com/constructum-ci/constructum/pkg/supervisor"
)

// ServiceAccount is attached to step workloads that inject secrets; it
// carries the vault role binding.
const ServiceAccount = "constructum-secrets"

func main() {
	logger := log.Default()

	conf, err := configs.Load()
	if err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}
	if err := conf.ForClient(); err != nil {
		log.Fatalf("can not read configuration: %s", err)
	}
	pipelineID := *conf.PipelineUUID

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

	clientset := cluster.ConnectToK8s()
	clst := cluster.Attach(cluster.WrapK8sClient(clientset), conf.Namespace)

	pipeline, err := database.Pipelines.Get(ctx, pipelineID)
	if err != nil {
		log.Fatalf("pipeline %s: %s", pipelineID, err)
	}
	repo, err := database.Repositories.Get(ctx, pipeline.RepositoryID)
	if err != nil {
		log.Fatalf("repository of pipeline %s: %s", pipelineID, err)
	}

	sup := supervisor.Supervisor{
		Cluster:   clst,
		Pipelines: database.Pipelines,
		Steps:     database.Steps,

		// the workspace lives on the scratch volume so step workloads
		// see the same files at the same paths.
		Fetcher: manifest.NewFetcher(cluster.ScratchMountPath),

		Metadata:       metadata,
		Archive:        archive,
		Cache:          cache,
		ServiceAccount: ServiceAccount,
		Logger:         logger,
	}

	// a returned error means the pipeline is recorded Failed; the
	// workload itself exits cleanly so the scaffold can release it.
	if err := sup.Run(ctx, pipeline, repo); err != nil {
		logger.Printf("pipeline %s: %s", pipelineID, err)
	}
}
