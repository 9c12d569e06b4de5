// Command fragvaultctl is a thin CLI wrapper around the cryptofrag
// pipeline: store a file as replicated, encrypted fragments, retrieve it
// back, or verify an existing stored payload reconstructs cleanly. All
// configuration, glob expansion, and logging setup live here rather than
// in the pipeline package, which stays free of CLI and config concerns.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nilsroemer/cryptofrag"
	"github.com/nilsroemer/cryptofrag/internal/audit"
	"github.com/nilsroemer/cryptofrag/internal/debug"
	"github.com/nilsroemer/cryptofrag/internal/hwinfo"
	"github.com/nilsroemer/cryptofrag/internal/storageio"
)

func main() {
	debug.InitFromEnv()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	hw := hwinfo.Describe()
	logger.WithFields(logrus.Fields{
		"aes_hardware_support": hw.AESHardwareSupport,
		"arch":                 hw.Architecture,
		"go_version":           hw.GoVersion,
		"num_cpu":              hw.NumCPU,
	}).Debug("host crypto capabilities")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "store":
		err = runStore(logger, os.Args[2:])
	case "retrieve":
		err = runRetrieve(logger, os.Args[2:])
	case "verify":
		err = runVerify(logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fragvaultctl <store|retrieve|verify> [flags]")
}

func commonFlags(fs *flag.FlagSet) (*string, *int) {
	configPath := fs.String("config", "", "path to YAML config file (nodes, replication, fragment size)")
	replication := fs.Int("replication", 0, "replication factor override (0 = size-based default)")
	return configPath, replication
}

func loadPipelineConfig(configPath string) (*fileConfig, error) {
	if configPath == "" {
		return &fileConfig{}, nil
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Nodes = expandNodeGlobs(cfg.Nodes, siblingNodeDirs(cfg.Nodes))
	return cfg, nil
}

// siblingNodeDirs lists the directory entries of each configured node's
// parent directory, giving expandNodeGlobs a candidate pool to match a
// glob like "/data/node-*" against.
func siblingNodeDirs(nodes []string) []string {
	seenParents := map[string]bool{}
	var candidates []string
	for _, n := range nodes {
		parent := filepath.Dir(n)
		if seenParents[parent] {
			continue
		}
		seenParents[parent] = true
		entries, err := os.ReadDir(parent)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				candidates = append(candidates, filepath.Join(parent, e.Name()))
			}
		}
	}
	return candidates
}

func buildStores(cfg *fileConfig, nodes []string) ([]storageio.NodeStore, error) {
	if cfg.S3 == nil {
		return nil, nil
	}
	ctx := context.Background()
	stores := make([]storageio.NodeStore, len(nodes))
	for i, n := range nodes {
		store, err := storageio.NewS3NodeStore(ctx, storageio.S3Config{
			Provider:  cfg.S3.Provider,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    filepath.Join(cfg.S3.Prefix, n),
		})
		if err != nil {
			return nil, fmt.Errorf("build s3 store for node %s: %w", n, err)
		}
		stores[i] = store
	}
	return stores, nil
}

func runStore(logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	configPath, replication := commonFlags(fs)
	input := fs.String("in", "", "path to the file to store")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("store: --in is required")
	}

	cfg, err := loadPipelineConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdownTracing, err := buildTracerProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing(ctx)

	payload, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("read %s: %w", *input, err)
	}

	h := cryptofrag.Checksum(payload)
	fragmentSize := cfg.FragmentSize
	if fragmentSize == 0 {
		fragmentSize = cryptofrag.OptimalFragmentSize(int64(len(payload)))
	}
	r := *replication
	if r == 0 {
		r = cfg.ReplicationFactor
	}
	if r == 0 {
		r = cryptofrag.DefaultReplicationFactor(int64(len(payload)))
	}

	stores, err := buildStores(cfg, cfg.Nodes)
	if err != nil {
		return err
	}

	g, err := buildGuard(cfg)
	if err != nil {
		return err
	}

	m := buildMetrics()
	m.SetHardwareAccelerationStatus("aes", hwinfo.HasAESHardwareSupport())

	opts := []cryptofrag.Option{cryptofrag.WithMetrics(m)}
	if stores != nil {
		opts = append(opts, cryptofrag.WithStores(stores))
	}
	if g != nil {
		opts = append(opts, cryptofrag.WithGuard(g))
	}

	p, err := cryptofrag.New(cfg.Nodes, h, fragmentSize, r, opts...)
	if err != nil {
		return err
	}

	auditor, err := newAuditor(cfg)
	if err != nil {
		return err
	}
	defer auditor.Close()

	fragmentCount := cryptofrag.FragmentCount(int64(len(payload)), fragmentSize)
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = cryptofrag.DynamicConcurrency(int64(len(payload)), 0)
	}

	storeStart := time.Now()
	err = p.Store(ctx, payload, concurrency)
	auditor.LogStore(fmt.Sprintf("%x", h), fragmentCount, r, err == nil, err, time.Since(storeStart))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"checksum":       fmt.Sprintf("%x", h),
		"fragment_count": fragmentCount,
		"replication":    r,
	}).Info("stored payload")
	fmt.Printf("%x\n", h)
	return nil
}

func runRetrieve(logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath, replication := commonFlags(fs)
	checksumHex := fs.String("checksum", "", "payload checksum (hex) to retrieve")
	fragmentCount := fs.Int("fragments", 1, "expected fragment count")
	output := fs.String("out", "", "path to write the reconstructed payload")
	fs.Parse(args)

	if *checksumHex == "" || *output == "" {
		return fmt.Errorf("retrieve: --checksum and --out are required")
	}

	cfg, err := loadPipelineConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdownTracing, err := buildTracerProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing(ctx)

	h, err := decodeChecksum(*checksumHex)
	if err != nil {
		return err
	}

	r := *replication
	if r == 0 {
		r = cfg.ReplicationFactor
	}
	if r == 0 {
		r = 2
	}
	fragmentSize := cfg.FragmentSize
	if fragmentSize == 0 {
		fragmentSize = 1
	}

	stores, err := buildStores(cfg, cfg.Nodes)
	if err != nil {
		return err
	}

	g, err := buildGuard(cfg)
	if err != nil {
		return err
	}

	m := buildMetrics()
	opts := []cryptofrag.Option{cryptofrag.WithMetrics(m)}
	if stores != nil {
		opts = append(opts, cryptofrag.WithStores(stores))
	}
	if g != nil {
		opts = append(opts, cryptofrag.WithGuard(g))
	}

	p, err := cryptofrag.New(cfg.Nodes, h, fragmentSize, r, opts...)
	if err != nil {
		return err
	}

	auditor, err := newAuditor(cfg)
	if err != nil {
		return err
	}
	defer auditor.Close()

	retrieveStart := time.Now()
	result, err := p.Retrieve(ctx, *fragmentCount, cfg.Concurrency)
	auditor.LogRetrieve(fmt.Sprintf("%x", h), *fragmentCount, result.Missing, err == nil, err, time.Since(retrieveStart))
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	if err := os.WriteFile(*output, result.Payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}

	if len(result.Missing) > 0 {
		logger.WithField("missing_fragments", result.Missing).Warn("retrieve completed with missing fragments")
	}
	logger.WithField("bytes", len(result.Payload)).Info("retrieved payload")
	return nil
}

func runVerify(logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath, replication := commonFlags(fs)
	checksumHex := fs.String("checksum", "", "payload checksum (hex) to verify")
	fragmentCount := fs.Int("fragments", 1, "expected fragment count")
	fs.Parse(args)

	if *checksumHex == "" {
		return fmt.Errorf("verify: --checksum is required")
	}

	cfg, err := loadPipelineConfig(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdownTracing, err := buildTracerProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing(ctx)

	h, err := decodeChecksum(*checksumHex)
	if err != nil {
		return err
	}

	r := *replication
	if r == 0 {
		r = cfg.ReplicationFactor
	}
	if r == 0 {
		r = 2
	}

	m := buildMetrics()
	p, err := cryptofrag.New(cfg.Nodes, h, 1, r, cryptofrag.WithMetrics(m))
	if err != nil {
		return err
	}

	result, err := p.Retrieve(ctx, *fragmentCount, cfg.Concurrency)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	got := cryptofrag.Checksum(result.Payload)
	if got != h && len(result.Missing) == 0 {
		return fmt.Errorf("verify: reconstructed payload checksum %x does not match expected %x", got, h)
	}

	if len(result.Missing) > 0 {
		logger.WithField("missing_fragments", result.Missing).Warn("verify found missing fragments")
		fmt.Println("INCOMPLETE")
		return nil
	}

	fmt.Println("OK")
	return nil
}

func newAuditor(cfg *fileConfig) (audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return audit.NewLogger(0, nil), nil
	}
	return audit.NewLoggerFromSinkConfig(audit.SinkConfig{
		Type:     cfg.Audit.SinkType,
		Endpoint: cfg.Audit.Endpoint,
		FilePath: cfg.Audit.FilePath,
	})
}

func decodeChecksum(hexStr string) ([32]byte, error) {
	var h [32]byte
	d, err := hex.DecodeString(hexStr)
	if err != nil {
		return h, fmt.Errorf("decode checksum: %w", err)
	}
	if len(d) != 32 {
		return h, fmt.Errorf("checksum must be 32 bytes, got %d", len(d))
	}
	copy(h[:], d)
	return h, nil
}
