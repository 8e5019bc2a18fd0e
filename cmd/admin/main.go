package main

import (
	"errors"
	"fmt"
	"os"

	"wastewatch/backend/internal/admin"
	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/rabbitmq"
	"wastewatch/backend/internal/storage"
)

func main() {
	root := admin.NewRootCmd(openComplaints)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openComplaints builds a lifecycle manager over the configured record store.
// Resolutions made here still reach RabbitMQ consumers when it is configured.
func openComplaints() (admin.Complaints, func() error, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Log.Setup(); err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open record store: %w", err)
	}
	closers := []func() error{store.Close}

	sink := complaint.NewMultiSink()
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		sink.Add("rabbitmq", publisher)
		closers = append(closers, publisher.Close)
	}

	// The admin tool never takes intake, so it needs no segmenter or images.
	svc := complaint.NewService(store, nil, nil, sink, complaint.Options{
		RadiusMeters:    cfg.Dedup.RadiusMeters,
		IncludeResolved: cfg.Dedup.IncludeResolved,
	})

	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return svc, closeAll, nil
}
