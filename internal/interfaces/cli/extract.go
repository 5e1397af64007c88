package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/activetext/internal/application/annotation"
	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/activetext/internal/intelligence/pattern_registry"
	"github.com/turtacn/activetext/pkg/errors"
	"github.com/turtacn/activetext/pkg/types/entity"
)

// ExtractOptions holds the extract command flags.
type ExtractOptions struct {
	Types        []string
	MaxURLLength int
	Custom       []string
	Lines        bool
	DumpMetrics  bool
}

// ExtractOutput is the printable result of one extract run.
type ExtractOutput struct {
	Results []*entity.Result `json:"results"`
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	opts := &ExtractOptions{}

	cmd := &cobra.Command{
		Use:   "extract [text...]",
		Short: "Extract entities from text",
		Long: "Extract hashtags, mentions, emails, URLs and custom pattern matches.\n" +
			"Each argument is annotated on its own; without arguments the text is read\n" +
			"from stdin, as a whole or one line at a time with --lines.",
		Example: `  activetext extract "ping @ann about #go"
  activetext extract --max-url-length 20 -o json < message.txt
  activetext extract --types hashtag --custom '\bTICKET-\d+\b' "see #ops TICKET-42"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.Types, "types", nil, "entity types to extract (hashtag, mention, email, url); overrides config")
	f.IntVar(&opts.MaxURLLength, "max-url-length", 0, "URL display limit, 0 keeps URLs whole; overrides config")
	f.StringArrayVar(&opts.Custom, "custom", nil, "extra regular expression to extract (repeatable)")
	f.BoolVar(&opts.Lines, "lines", false, "treat each stdin line as a separate text")
	f.BoolVar(&opts.DumpMetrics, "metrics", false, "write Prometheus metrics to stderr after the run")
	return cmd
}

func runExtract(cmd *cobra.Command, opts *ExtractOptions, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	x := cliCtx.Config.Extractor
	if cmd.Flags().Changed("types") {
		x.EnabledTypes = opts.Types
	}
	if cmd.Flags().Changed("max-url-length") {
		if opts.MaxURLLength < 0 {
			return errors.NewInvalidInputError("--max-url-length must be ≥ 0").WithDetail(strconv.Itoa(opts.MaxURLLength))
		}
		x.URLMaxLength = opts.MaxURLLength
	}
	for _, p := range opts.Custom {
		if err := pattern_registry.Validate(p); err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidInput, "--custom pattern does not compile").WithDetail(p)
		}
	}
	x.CustomPatterns = append(append([]string(nil), x.CustomPatterns...), opts.Custom...)

	annotateOpts, err := x.AnnotationOptions()
	if err != nil {
		return err
	}

	texts, err := readTexts(cmd.InOrStdin(), args, opts.Lines)
	if err != nil {
		return err
	}

	logger := cliCtx.Logger.Named("extract")
	svc := annotation.NewService(annotateOpts, logger, cliCtx.Metrics)
	logger.Debug("annotating",
		logging.Int("texts", len(texts)),
		logging.Int("categories", len(svc.Categories())),
		logging.Int("url_max_length", annotateOpts.URLMaxLength))

	results, err := svc.AnnotateBatch(cmd.Context(), texts)
	if err != nil {
		return err
	}

	if err := PrintResult(cmd, &ExtractOutput{Results: results}); err != nil {
		return err
	}
	if opts.DumpMetrics {
		return cliCtx.Collector.WriteText(cmd.ErrOrStderr())
	}
	return nil
}

// readTexts returns args when present, otherwise stdin as one text or as
// one text per line.
func readTexts(r io.Reader, args []string, lines bool) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	if lines {
		var out []string
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			out = append(out, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read stdin")
		}
		return out, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read stdin")
	}
	return []string{strings.TrimRight(string(data), "\r\n")}, nil
}

// String renders every result as its text followed by one line per entity.
func (o *ExtractOutput) String() string {
	var sb strings.Builder
	for i, res := range o.Results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(res.Text)
		sb.WriteString("\n")
		for _, e := range res.Entities {
			fmt.Fprintf(&sb, "  %-8s [%d,%d) %s\n", e.Category.Kind, e.Range.Start, e.Range.End, describe(e))
		}
	}
	return sb.String()
}

// TableHeaders implements the table output.
func (o *ExtractOutput) TableHeaders() []string {
	return []string{"TEXT", "CATEGORY", "START", "END", "VALUE"}
}

// TableRows implements the table output.
func (o *ExtractOutput) TableRows() [][]string {
	var rows [][]string
	for i, res := range o.Results {
		for _, e := range res.Entities {
			rows = append(rows, []string{
				strconv.Itoa(i),
				e.Category.Key(),
				strconv.Itoa(e.Range.Start),
				strconv.Itoa(e.Range.End),
				describe(e),
			})
		}
	}
	return rows
}

func describe(e entity.Entity) string {
	if e.Category.Kind == entity.KindURL && e.Payload.Trimmed != e.Payload.Original {
		return e.Payload.Trimmed + " -> " + e.Payload.Original
	}
	return e.Text()
}
