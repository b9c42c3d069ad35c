package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/search"
	"github.com/mmcdole/appshelf/internal/service"
)

// listOptions are the flags of the list and browse commands
type listOptions struct {
	order       string
	offset      int
	limit       int
	category    string
	tag         string
	keyword     string
	author      string
	packager    string
	names       []string
	allPackages bool
	noStats     bool
	match       string
	matchTag    string
}

func (o *listOptions) register(cmd *cobra.Command) {
	def := domain.DefaultFilter()
	flags := cmd.Flags()
	flags.StringVar(&o.order, "order", string(def.Order), "Ranking order (download|score)")
	flags.IntVar(&o.offset, "offset", def.Offset, "Skip this many entries")
	flags.IntVar(&o.limit, "limit", def.Limit, "Maximum entries to return")
	flags.StringVar(&o.category, "category", "", "Only entries in this category")
	flags.StringVar(&o.tag, "tag", "", "Only entries with this tag (server side)")
	flags.StringVar(&o.keyword, "keyword", "", "Server side keyword search")
	flags.StringVar(&o.author, "author", "", "Only entries by this author")
	flags.StringVar(&o.packager, "packager", "", "Only entries by this packager")
	flags.StringSliceVar(&o.names, "name", nil, "Restrict to these entry names (repeatable)")
	flags.BoolVar(&o.allPackages, "all-packages", false, "Keep entries without a local package match")
	flags.BoolVar(&o.noStats, "no-stats", false, "Skip the popularity query; requires --name")
	flags.StringVar(&o.match, "match", "", "Fuzzy filter the result by title")
	flags.StringVar(&o.matchTag, "match-tag", "", "Fuzzy filter the result by tag")
}

// filter builds the catalog query from the flags
func (o *listOptions) filter() (domain.QueryFilter, error) {
	f := domain.DefaultFilter()
	switch domain.Order(strings.ToLower(o.order)) {
	case domain.OrderDownload:
		f.Order = domain.OrderDownload
	case domain.OrderScore:
		f.Order = domain.OrderScore
	default:
		return f, fmt.Errorf("invalid order %q (want download or score)", o.order)
	}
	if o.offset < 0 || o.limit < 0 {
		return f, fmt.Errorf("offset and limit must not be negative")
	}
	f.Offset = o.offset
	f.Limit = o.limit
	f.Category = o.category
	f.Tag = o.tag
	f.Keyword = o.keyword
	f.Author = o.author
	f.Packager = o.packager
	f.Names = o.names
	f.FilterPackage = !o.allPackages
	f.FilterStat = !o.noStats
	return f, nil
}

// refine applies the local fuzzy filters
func (o *listOptions) refine(items []domain.Software) []domain.Software {
	if o.matchTag != "" {
		items = search.MatchTag(items, o.matchTag)
	}
	if o.match != "" {
		results := search.Filter(items, o.match)
		items = make([]domain.Software, len(results))
		for i, r := range results {
			items[i] = r.Software
		}
	}
	return items
}

// maxTagDistance bounds how far a mistyped tag may be from a suggestion
const maxTagDistance = 3

// tagSuggestion returns the tag among items closest to tag, or ""
func tagSuggestion(items []domain.Software, tag string) string {
	var tags []string
	seen := make(map[string]bool)
	for _, sw := range items {
		for _, t := range sw.Info.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return search.Suggest(tag, tags, maxTagDistance)
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var opts listOptions
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			if !ctx.catalog.Native() {
				// Package narrowing needs the store daemon
				filter.FilterPackage = false
			}

			listed, err := ctx.catalog.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			items := opts.refine(listed)
			if len(items) == 0 && opts.matchTag != "" {
				if tag := tagSuggestion(listed, opts.matchTag); tag != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "No tag matches %q; did you mean %q?\n", opts.matchTag, tag)
				}
			}

			if jsonOutput {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No apps found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(softwareHeaders, softwareRows(items), softwareAligns))
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show details for one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := ctx.catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, sw)
			}
			printSoftware(cmd.OutOrStdout(), sw)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printSoftware(out io.Writer, sw domain.Software) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%-12s %s\n", label+":", value)
		}
	}

	line("Name", sw.Name)
	line("Title", sw.Title())
	line("Slogan", sw.Info.Slogan)
	line("Category", sw.Info.Category)
	line("Author", sw.Info.Author)
	line("Packager", sw.Info.Packager)
	line("Source", sw.Info.Source.String())
	line("Home page", sw.Info.HomePage)
	line("Locale", sw.Info.Locale)
	line("Tags", strings.Join(sw.Info.Tags, ", "))
	line("Score", sw.FormattedScore())
	line("Icon", sw.Info.Icon)
	line("Cover", sw.Info.Cover)
	for i, shot := range sw.Info.Screenshots {
		line(fmt.Sprintf("Screenshot %d", i+1), shot)
	}
	for _, p := range sw.Info.Packages {
		line("Package", p.PackageURI)
	}
	if p := sw.Package; p != nil {
		line("Installed", yesNo(p.Installed))
		line("Local", p.LocalVersion)
		line("Remote", p.RemoteVersion)
	}
	if sw.Info.Description != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, sw.Info.Description)
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "watch <name>",
		Short: "Print install status transitions for one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireNative(); err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if timeout > 0 {
				var stop context.CancelFunc
				runCtx, stop = context.WithTimeout(runCtx, timeout)
				defer stop()
			}

			sub := ctx.tracker.Subscribe(args[0])
			defer sub.Close()
			return printTransitions(cmd.OutOrStdout(), service.Distinct(runCtx, sub.C))
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop watching after this long (0 watches until interrupted)")
	return cmd
}

// printTransitions writes one line per update until updates closes
func printTransitions(out io.Writer, updates <-chan service.StatusUpdate) error {
	for u := range updates {
		stamp := u.At.Format(time.TimeOnly)
		if u.Err != nil {
			fmt.Fprintf(out, "%s  %s  error: %v\n", stamp, u.Name, u.Err)
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n", stamp, u.Name, u.Status)
	}
	return nil
}

func newPackagesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "packages [name...]",
		Short: "List the package descriptor published for each app",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := ctx.meta.GetPackagesURL(cmd.Context())
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = make([]string, 0, len(urls))
				for name := range urls {
					names = append(names, name)
				}
			}
			slices.Sort(names)

			rows := make([][]string, 0, len(names))
			packages := make(map[string]string, len(names))
			for _, name := range names {
				entry, ok := urls[name]
				if !ok {
					return fmt.Errorf("%s: %w", name, domain.ErrSoftwareNotFound)
				}
				packages[name] = entry.Name
				rows = append(rows, []string{name, entry.Name})
			}

			if jsonOutput {
				return writeJSON(cmd, packages)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packages published")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"App", "Package"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSizeCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "size <name>",
		Short: "Show the download size of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireNative(); err != nil {
				return err
			}
			sw, err := ctx.catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			size, err := ctx.catalog.Size(cmd.Context(), sw)
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), size)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sw.Title(), domain.FormatSize(size))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "bytes", false, "Print the size in bytes")
	return cmd
}
