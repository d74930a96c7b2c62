package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/sgpt-go/internal/app"
	"github.com/doeshing/sgpt-go/internal/infrastructure/cache"
	"github.com/doeshing/sgpt-go/internal/infrastructure/config"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the response cache",
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached responses, oldest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				return listCacheEntries(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "size",
			Short: "Show cache location and size",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showCacheSize(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached response",
			RunE: func(cmd *cobra.Command, args []string) error {
				return clearCache(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
	)

	return cacheCmd
}

// openCache opens the cache with the configured limits.
func openCache(ctx context.Context, container *app.Container) (*cache.FileCache, error) {
	cfg, err := container.Resolver.Resolve(ctx, config.Overrides{})
	if err != nil {
		return nil, err
	}
	return container.NewCache(cfg), nil
}

// listCacheEntries lists all cache entries
func listCacheEntries(ctx context.Context, out io.Writer, container *app.Container) error {
	store, err := openCache(ctx, container)
	if err != nil {
		return err
	}
	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to retrieve cache entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, msgNoCachedResponses)
		return nil
	}

	for _, entry := range entries {
		fmt.Fprintf(out, "%s | %s | %s | %s | %s\n",
			shortKey(entry.Key),
			entry.Role,
			entry.Model,
			humanize.Time(entry.CreatedAt),
			firstLine(entry.Response, 60))
	}
	return nil
}

// showCacheSize displays the cache directory size
func showCacheSize(ctx context.Context, out io.Writer, container *app.Container) error {
	store, err := openCache(ctx, container)
	if err != nil {
		return err
	}
	size, err := store.Size()
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}
	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to retrieve cache entries: %w", err)
	}

	fmt.Fprintf(out, "Cache directory: %s\nEntries: %d\nSize: %s\n", store.Dir(), len(entries), humanize.Bytes(uint64(size)))
	return nil
}

// clearCache clears the cache directory
func clearCache(ctx context.Context, out io.Writer, container *app.Container) error {
	store, err := openCache(ctx, container)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintln(out, msgCacheCleared)
	return nil
}

// firstLine shortens text to its first line, at most width runes.
func firstLine(text string, width int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " …"
	}
	runes := []rune(text)
	if len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return text
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
