package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/search/request"
	lifecycleuc "github.com/kailas-cloud/csindex/internal/usecase/lifecycle"
)

func newSetupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create missing domains and define drifted index fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := a.services.Reconciler
			if err := rec.Run(cmd.Context()); err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"converged": rec.Converged()})
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var (
		sel         lifecycleuc.Selector
		recordTypes []string
		clearOpts   lifecycleuc.ClearOptions
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete domains, wait for them to disappear and rebuild the schemas",
		Long: `Delete the selected domains. Without --domain, --index or --type every
domain carrying the configured prefix is deleted; --everything deletes every
domain of the account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, raw := range recordTypes {
				rt, err := domain.ParseRecordType(raw)
				if err != nil {
					return err
				}
				sel.RecordTypes = append(sel.RecordTypes, rt)
			}

			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.services.Lifecycle.Clear(cmd.Context(), sel, clearOpts)
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string][]string{"deleted": deleted})
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&sel.Domains, "domain", nil, "domain name to delete (repeatable)")
	f.StringSliceVar(&sel.Indexes, "index", nil, "index whose domain to delete (repeatable)")
	f.StringSliceVar(&recordTypes, "type", nil, "record type (namespace.model) whose domain to delete (repeatable)")
	f.BoolVar(&sel.Everything, "everything", false, "delete every domain of the account")
	f.BoolVar(&clearOpts.NoWait, "no-wait", false, "do not wait for deletion to finish")
	f.BoolVar(&clearOpts.NoRebuild, "no-rebuild", false, "do not rebuild schemas afterwards")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		ro     request.Options
		parser string
		facets []string
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search one or more indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro.Parser = request.Parser(parser)
			for _, raw := range facets {
				name, topN, ok := strings.Cut(raw, ":")
				ro.Facets = append(ro.Facets, name)
				if !ok {
					continue
				}
				n, err := strconv.Atoi(topN)
				if err != nil {
					return fmt.Errorf("facet %q: top-n must be an integer", name)
				}
				if ro.FacetTopN == nil {
					ro.FacetTopN = make(map[string]int)
				}
				ro.FacetTopN[name] = n
			}
			req, err := request.New(args[0], ro)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.services.Search.Search(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&ro.Indexes, "index", nil, "index to search (repeatable; default all)")
	f.StringSliceVar(&ro.ReturnFields, "field", nil, "field to return (repeatable)")
	f.StringSliceVar(&facets, "facet", nil, "facet field, optionally name:top-n (repeatable)")
	f.IntVar(&ro.Start, "start", 0, "offset of the first hit")
	f.IntVar(&ro.Size, "size", request.DefaultSize, "page size")
	f.StringVar(&parser, "parser", string(request.ParserSimple), "query parser: simple, structured, lucene, dismax")
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var allowPartial bool

	cmd := &cobra.Command{
		Use:   "sync INDEX",
		Short: "Upload every stored record of an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.services.Records == nil {
				return fmt.Errorf("sync: %w: records.addrs is not configured", domain.ErrConfiguration)
			}
			report, err := a.services.Records.Sync(cmd.Context(), args[0], allowPartial)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "skip records that fail preparation")
	return cmd
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove IDENTIFIER",
		Short: "Delete a document by its namespace.model.pk identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.services.Pipeline.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("remove: %w", err)
			}
			return nil
		},
	}
}

func newAccessCmd(opts *rootOptions) *cobra.Command {
	var (
		ip         string
		domainName string
	)

	cmd := &cobra.Command{
		Use:   "access [INDEX]",
		Short: "Grant an IP address search and document access",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (domainName == "") {
				return fmt.Errorf("give either an index or --domain")
			}
			if ip == "" {
				ip = opts.cfg.CloudSearch.IPAddress
			}

			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			lc := a.services.Lifecycle
			var res lifecycleuc.AccessResult
			if domainName != "" {
				res, err = lc.EnableDomainAccess(cmd.Context(), domainName, ip)
			} else {
				res, err = lc.EnableIndexAccess(cmd.Context(), args[0], ip)
			}
			if err != nil {
				return fmt.Errorf("access: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "", "address to grant (default cloudsearch.ip_address)")
	cmd.Flags().StringVar(&domainName, "domain", "", "grant on a domain instead of an index")
	return cmd
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex INDEX",
		Short: "Ask CloudSearch to rebuild an index's domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			fields, err := a.services.Lifecycle.IndexEvent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string][]string{"fields": fields})
		},
	}
}
