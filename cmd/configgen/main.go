package main

import (
	"os"

	"github.com/EndPointCorp/kmlsync/internal/config"
	"github.com/EndPointCorp/kmlsync/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const defaultPath = "cmd/kmlsyncctl/config.toml"

func main() {
	output := pflag.StringP("output", "o", defaultPath, "output path for config template")
	validate := pflag.Bool("validate", false, "validate an existing config file")
	input := pflag.StringP("input", "i", defaultPath, "config path for validation")
	force := pflag.BoolP("force", "f", false, "overwrite existing config file")
	pflag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Error().Err(err).Str("path", *input).Msg("config invalid")
			os.Exit(1)
		}
		log.Info().Str("path", *input).Str("master_href", cfg.MasterURL()).Msg("validated kmlsync config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Error().Err(err).Str("path", *output).Msg("write template failed")
		os.Exit(1)
	}
	log.Info().Str("path", *output).Msg("wrote kmlsync config template")
}
