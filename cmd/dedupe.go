package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/autobrr/linkdupe/pkg/config"
	"github.com/autobrr/linkdupe/pkg/dedupe"
	"github.com/autobrr/linkdupe/pkg/expression"
	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/grouper"
	"github.com/autobrr/linkdupe/pkg/linker"
	"github.com/autobrr/linkdupe/pkg/logger"
	"github.com/autobrr/linkdupe/pkg/notification"
	"github.com/autobrr/linkdupe/pkg/paths"
	"github.com/autobrr/linkdupe/pkg/signature"
)

// dedupeFlags holds the command line overrides for the configuration.
type dedupeFlags struct {
	verify  bool
	minSize string
	workers int
	json    bool

	verifySet  bool
	minSizeSet bool
	workersSet bool
}

func DedupeCommand() *cobra.Command {
	var flags dedupeFlags

	command := &cobra.Command{
		Use:   "dedupe PATH...",
		Short: "Replace duplicate files below the given paths with hardlinks",
		Long: `This command can be used to find files with identical content below the given paths
and replace every copy with a hardlink to one canonical file.`,
		Example: `  linkdupe dedupe /mnt/media
  linkdupe dedupe --dry-run --verify /mnt/media /mnt/backup`,
		Args: cobra.MinimumNArgs(1),
	}

	command.Flags().BoolVar(&flags.verify, "verify", false, "Byte-compare files before linking")
	command.Flags().StringVar(&flags.minSize, "min-size", "", "Ignore files smaller than this size (e.g. 1MiB)")
	command.Flags().IntVar(&flags.workers, "workers", 0, "Number of concurrent workers")
	command.Flags().BoolVar(&flags.json, "json", false, "Print the report as JSON")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		// init core
		if !initialized {
			console := cmd.OutOrStdout()
			if flags.json {
				// stdout carries the report
				console = cmd.ErrOrStderr()
			}
			initCore(console, !flags.json)
			initialized = true
		}

		// set log
		log := logger.GetLogger("dedupe")

		flags.verifySet = cmd.Flags().Changed("verify")
		flags.minSizeSet = cmd.Flags().Changed("min-size")
		flags.workersSet = cmd.Flags().Changed("workers")

		opts, err := engineOptions(config.Config, flags)
		if err != nil {
			log.WithError(err).Fatal("Failed building run options")
		}
		if opts.DryRun {
			log.Warn("Dry-run enabled, no files will be changed")
		}

		noti := notification.NewDiscordSender(log, config.Config.Notifications)

		source := paths.Walk(args, paths.Options{
			ExcludePaths: config.Config.Filters.ExcludePaths,
			NumWorkers:   opts.Workers,
		})

		rep, runErr := dedupe.New(opts).Run(ctx, source)
		logSummary(log, rep)

		if flags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				log.WithError(err).Error("Failed encoding report")
			}
		}

		if noti.CanSend() {
			if err := noti.Send("Dedupe", summary(rep), time.Since(start), notificationFields(noti, rep), opts.DryRun); err != nil {
				log.WithError(err).Error("Failed sending notification")
			}
		}

		if runErr != nil {
			return errors.Wrap(runErr, "run incomplete")
		}
		return nil
	}

	return command
}

func engineOptions(cfg *config.Configuration, flags dedupeFlags) (dedupe.Options, error) {
	minSize, err := cfg.MinSizeBytes()
	if err != nil {
		return dedupe.Options{}, err
	}
	if flags.minSizeSet {
		n, err := humanize.ParseBytes(flags.minSize)
		if err != nil {
			return dedupe.Options{}, errors.Wrapf(err, "parse --min-size %q", flags.minSize)
		}
		minSize = int64(n)
	}

	sampler, err := signature.NewSampler(cfg.Signature.Strategy, cfg.Signature.Window, cfg.Signature.Samples)
	if err != nil {
		return dedupe.Options{}, err
	}

	order, err := grouper.ParseOrder(cfg.Canonical.Order)
	if err != nil {
		return dedupe.Options{}, errors.Wrap(err, "canonical.order")
	}

	opts := dedupe.Options{
		DryRun:        FlagDryRun || cfg.DryRun,
		VerifyContent: cfg.VerifyContent,
		MinSize:       minSize,
		IgnoreSmall:   cfg.IgnoreSmall,
		Workers:       cfg.Workers,
		OpenRate:      cfg.OpenRate,
		Sampler:       sampler,
		Order:         order,
	}
	if flags.verifySet {
		opts.VerifyContent = flags.verify
	}
	if flags.workersSet {
		opts.Workers = flags.workers
	}

	if len(cfg.Filters.Exclude) > 0 {
		filter, err := expression.NewFilter(cfg.Filters.Exclude)
		if err != nil {
			return dedupe.Options{}, err
		}
		opts.Filter = filter
	}

	return opts, nil
}

func summary(rep *dedupe.Report) string {
	verb := "Linked"
	if rep.DryRun {
		verb = "Would link"
	}
	return fmt.Sprintf("%s %d files in %d groups, reclaiming %s. Scanned %d files, %d failures, %d anomalies (%s).",
		verb, rep.Linked, rep.DuplicateGroups, humanize.IBytes(uint64(rep.BytesReclaimed)), rep.Scanned,
		len(rep.Failures), len(rep.Anomalies), rep.Status)
}

func logSummary(log *logrus.Entry, rep *dedupe.Report) {
	outcomes := rep.Outcomes()

	log.WithFields(logrus.Fields{
		"scanned":   rep.Scanned,
		"added":     rep.Added,
		"hardlinks": rep.Hardlinks,
		"hashed":    rep.Hashed,
	}).Info("Catalog summary")

	log.WithFields(logrus.Fields{
		"groups":         rep.DuplicateGroups,
		"already_linked": rep.AlreadyLinked,
		"linked":         outcomes[linker.Linked],
		"already_same":   outcomes[linker.SkippedAlreadySame],
		"cross_device":   outcomes[linker.SkippedCrossDevice],
		"failed":         outcomes[linker.Failed],
	}).Info("Link summary")

	for _, a := range rep.Anomalies {
		log.Errorf("Anomaly (%s): %q vs %q: %s", a.Kind, a.Canonical, a.Path, a.Reason)
	}

	log.Info(summary(rep))
}

func notificationFields(noti notification.Sender, rep *dedupe.Report) []notification.Field {
	var fields []notification.Field

	for _, g := range rep.Groups {
		if len(g.Replaced) > 0 {
			fields = append(fields, noti.BuildField(notification.ActionLinked, notification.BuildOptions{
				Canonical: g.Canonical,
				Size:      g.Size,
				Reclaimed: g.BytesReclaimed,
				Replaced:  g.Replaced,
			}))
		}

		for _, o := range g.Outcomes {
			if o.Status != linker.Failed || o.Kind == failure.KindDigestCollision {
				continue
			}
			fields = append(fields, noti.BuildField(notification.ActionFailed, notification.BuildOptions{
				Canonical: g.Canonical,
				Path:      o.Path,
				Reason:    o.Reason,
			}))
		}
	}

	for _, a := range rep.Anomalies {
		fields = append(fields, noti.BuildField(notification.ActionCollision, notification.BuildOptions{
			Canonical: a.Canonical,
			Path:      a.Path,
			Reason:    a.Reason,
		}))
	}

	return fields
}
