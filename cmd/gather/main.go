// gather lists, as JSON, the source images each category scan would process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/sfomuseum/go-photos-manifest/common"
	"github.com/sfomuseum/go-photos-manifest/config"
	"github.com/sfomuseum/go-photos-manifest/operations/gather"
)

func main() {

	var config_path string
	var env_path string

	flag.StringVar(&config_path, "config", "", "Path to a JSON config file. Defaults to ~/.photos-manifest/config.json if present.")
	flag.StringVar(&env_path, "env", ".env", "Path to an optional file of PHOTOS_* environment variables.")

	flag.Parse()

	ctx := context.Background()

	err := config.LoadEnv(env_path)

	if err != nil {
		log.Fatal(err)
	}

	var cfg *config.Config

	if config_path != "" {
		cfg, err = config.Load(ctx, config_path)
	} else {
		cfg, err = config.LoadDefault(ctx)
	}

	if err != nil {
		log.Fatal(err)
	}

	err = cfg.ApplyEnv()

	if err != nil {
		log.Fatal(err)
	}

	bucket, err := common.OpenBucket(ctx, cfg.Source, false)

	if err != nil {
		log.Fatalf("%v, %v", gather.ErrSourceUnreachable, err)
	}

	defer bucket.Close()

	err = gather.CheckSource(ctx, bucket)

	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)

	for _, c := range cfg.Categories {

		opts := &gather.GatherAssetsOptions{
			Category:   c.Name,
			Directory:  c.Directory,
			Extensions: cfg.Extensions,
			Max:        cfg.MaxPhotosPerCategory,
			Depth:      1,
		}

		assets, err := gather.GatherAssets(ctx, bucket, opts)

		if err != nil {
			log.Fatalf("Failed to gather '%s', %v", c.Name, err)
		}

		for _, a := range assets {

			err := enc.Encode(a)

			if err != nil {
				log.Fatal(err)
			}
		}
	}
}
