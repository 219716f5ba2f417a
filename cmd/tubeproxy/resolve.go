package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lvcoi/tubeproxy/internal/app"
	"github.com/lvcoi/tubeproxy/internal/config"
	"github.com/lvcoi/tubeproxy/internal/meta"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7FDBFF")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Faint(true)
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <url-or-id>",
	Short: "Look up a video's metadata and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		a := app.New(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+5*time.Second)
		defer cancel()

		video, err := a.Resolver().Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		if video == nil {
			return fmt.Errorf("no video found for %q", args[0])
		}

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(video)
		}

		printVideo(video)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print raw JSON instead of the formatted summary")
}

func printVideo(v *meta.Video) {
	fmt.Println(titleStyle.Render(v.Title))
	printField("URL", v.URL)
	printField("Channel", v.ChannelTitle)
	printField("Published", v.PublishedAt)
	printField("Duration", v.Duration)
	if len(v.Tags) > 0 {
		printField("Tags", strings.Join(v.Tags, ", "))
	}
	if s := v.Statistics; s != nil {
		printField("Views", countString(s.ViewCount))
		printField("Likes", countString(s.LikeCount))
		printField("Comments", countString(s.CommentCount))
	}
	if c := v.Channel; c != nil {
		printField("Subscribers", countString(c.SubscriberCount))
	}
	if v.Description != "" {
		fmt.Println()
		fmt.Println(dimStyle.Render(firstLines(v.Description, 4)))
	}
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}

// countString renders an optional counter, keeping "unknown" distinct
// from an actual zero.
func countString(n *uint64) string {
	if n == nil {
		return "unknown"
	}
	return strconv.FormatUint(*n, 10)
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = append(lines[:n], "…")
	}
	return strings.Join(lines, "\n")
}
