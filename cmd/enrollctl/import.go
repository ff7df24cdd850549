package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/enrollment/internal/core"
)

type importOptions struct {
	format   string
	courseID int64
	batchID  int64
	centerID int64
	actorID  int64
	apply    bool
}

func newValidateCmd(e *env) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate an import file against the rules and existing students",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return checkFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.validate(cmd, args[0], false)
			if err != nil {
				return err
			}
			defer v.close()
			res := v.result
			if err := writeReport(cmd.OutOrStdout(), opts.format, res, func(p *printer) { printValidation(p, args[0], res) }); err != nil {
				return err
			}
			if res.InvalidRecords > 0 {
				return withCode(exitRejected, fmt.Errorf("%d of %d rows are invalid", res.InvalidRecords, res.TotalRecords))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}

func newImportCmd(e *env) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate and import a file (dry run unless --apply)",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format); err != nil {
				return err
			}
			if opts.courseID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--course must be a positive id"))
			}
			if opts.actorID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--actor must be a positive id"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runImport(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", formatText, "Output format: text, json or yaml")
	cmd.Flags().Int64Var(&opts.courseID, "course", 0, "Target course id (required)")
	cmd.Flags().Int64Var(&opts.batchID, "batch", 0, "Target batch id")
	cmd.Flags().Int64Var(&opts.centerID, "center", 0, "Target training center id")
	cmd.Flags().Int64Var(&opts.actorID, "actor", 0, "Administrator id recorded in the import log (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write to the database (default is dry run)")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func (e *env) runImport(cmd *cobra.Command, path string, opts importOptions) error {
	v, err := e.validate(cmd, path, opts.apply)
	if err != nil {
		return err
	}
	defer v.close()
	res := v.result

	if !opts.apply {
		if err := writeReport(cmd.OutOrStdout(), opts.format, res, func(p *printer) {
			printValidation(p, path, res)
			p.line("dry run: %d rows would be imported, rerun with --apply", res.ValidRecords)
		}); err != nil {
			return err
		}
		if res.InvalidRecords > 0 {
			return withCode(exitRejected, fmt.Errorf("%d of %d rows are invalid", res.InvalidRecords, res.TotalRecords))
		}
		return nil
	}

	out, err := v.commit(core.CommitRequest{
		CourseID:         opts.courseID,
		BatchID:          optionalID(opts.batchID),
		TrainingCenterID: optionalID(opts.centerID),
		ActorID:          opts.actorID,
	})
	if err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), opts.format, out, func(p *printer) { printOutcome(p, out) }); err != nil {
		return err
	}
	if out.FailureCount > 0 {
		return withCode(exitRejected, fmt.Errorf("%d of %d rows were not imported", out.FailureCount, out.SuccessCount+out.FailureCount))
	}
	return nil
}

// validation is a validated upload held in a fresh session.
type validation struct {
	result *core.ValidateResult
	commit func(core.CommitRequest) (*core.ImportOutcome, error)
	close  func()
}

// validate reads path and validates it in a fresh session. The caller must
// call close on the result.
func (e *env) validate(cmd *cobra.Command, path string, archive bool) (*validation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	store, closeStore, err := e.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := e.newService(ctx, cfg, store, archive)
	if err != nil {
		closeStore()
		return nil, err
	}

	sessionID := "cli-" + uuid.NewString()
	res, err := svc.ValidateFile(ctx, sessionID, data, filepath.Base(path))
	if err != nil {
		closeStore()
		if core.IsInputError(err) {
			return nil, withCode(exitRejected, fmt.Errorf("%s: %w", core.FormatUserError(err), err))
		}
		return nil, err
	}

	return &validation{
		result: res,
		commit: func(req core.CommitRequest) (*core.ImportOutcome, error) {
			return svc.CommitImport(ctx, sessionID, req)
		},
		close: closeStore,
	}, nil
}

func optionalID(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

type historyOptions struct {
	format string
	limit  int
	offset int
}

func newHistoryCmd(e *env) *cobra.Command {
	var opts historyOptions

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past imports, newest first",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return checkFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			store, closeStore, err := e.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc, err := e.newService(cmd.Context(), cfg, store, false)
			if err != nil {
				return err
			}
			entries, err := svc.ImportHistory(cmd.Context(), opts.limit, opts.offset)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []core.ImportLogEntry{}
			}
			return writeReport(cmd.OutOrStdout(), opts.format, entries, func(p *printer) { printHistory(p, entries) })
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", formatText, "Output format: text, json or yaml")
	cmd.Flags().IntVar(&opts.limit, "limit", core.DefaultHistoryLimit, "Maximum entries to list")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Entries to skip")
	return cmd
}
