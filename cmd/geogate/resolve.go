package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gokaycavdar/go-geogate/pkg/models"
	"github.com/gokaycavdar/go-geogate/pkg/setup"
)

var errBadHeader = errors.New("header must be Name=Value")

var (
	resolveCmd = &cobra.Command{
		Use:   "resolve <ip>",
		Short: "Resolve one address and explain the answer",
		Args:  cobra.ExactArgs(1),
		RunE:  resolve,
	}

	resolveHeaders []string
)

func init() {
	resolveCmd.Flags().StringArrayVarP(&resolveHeaders, "header", "H", nil, "request header as Name=Value (repeatable)")
	rootCmd.AddCommand(resolveCmd)
}

func resolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	headers, err := parseHeaders(resolveHeaders)
	if err != nil {
		return err
	}

	rt, err := setup.Build(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	visitor := models.NewVisitor(args[0], headers)
	printResolution(os.Stdout, visitor, rt.Chain.Evaluate(cmd.Context(), visitor))
	return nil
}

func parseHeaders(raw []string) (http.Header, error) {
	h := make(http.Header, len(raw))
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errBadHeader, entry)
		}
		// Keep the name as typed; edge header aliases differ only in case.
		h[name] = append(h[name], strings.TrimSpace(value))
	}
	return h, nil
}

func printResolution(w io.Writer, visitor models.Visitor, res models.Resolution) {
	fmt.Fprintf(w, "ip:       %s\n", visitor.IPAddress)
	fmt.Fprintf(w, "match:    %t\n", res.Match)
	fmt.Fprintf(w, "source:   %s\n", res.Source)
	fmt.Fprintf(w, "cached:   %t\n", res.Cached)
	fmt.Fprintf(w, "key:      %s\n", res.CacheKey)
	for _, a := range res.Attempts {
		if a.Err != nil {
			fmt.Fprintf(w, "  %-16s %-8s %v\n", a.Strategy, a.Verdict, a.Err)
			continue
		}
		fmt.Fprintf(w, "  %-16s %s\n", a.Strategy, a.Verdict)
	}
}
