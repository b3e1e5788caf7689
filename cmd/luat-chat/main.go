package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"luat-chat/pkg/chat"
	"luat-chat/pkg/citation"
	"luat-chat/pkg/config"
	"luat-chat/pkg/highlight"
	"luat-chat/pkg/lawapi"
	"luat-chat/pkg/locator"
)

// version is set during build time via ldflags
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "luat-chat",
		Short: "Terminal client for the legal Q&A assistant",
		Long: `luat-chat asks the legal Q&A backend questions about Vietnamese
law from the terminal and resolves the article citations in the answer
to their source documents and pages.`,
		Version: version,
	}

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(conversationsCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*lawapi.Client, *config.ProfileConfig, error) {
	profile, err := config.LoadProfile()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile config: %w", err)
	}
	timeout := time.Duration(profile.Backend.TimeoutSeconds) * time.Second
	return lawapi.NewWithTimeout(profile.Backend.URL, timeout), profile, nil
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot legal question",
		Long: `Ask sends a single question to the backend and prints the answer
with its resolved article citations.

Example:
  luat-chat ask "Điều kiện kết hôn là gì?"
  luat-chat ask --mode quality --json "Thủ tục ly hôn đơn phương?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, _ := cmd.Flags().GetString("mode")
			asJSON, _ := cmd.Flags().GetBool("json")

			api, _, err := newClient()
			if err != nil {
				return err
			}

			resp, err := api.Ask(cmd.Context(), args[0], mode, nil)
			if err != nil {
				return fmt.Errorf("question failed: %w", err)
			}

			cleaned, refs := citation.Parse(resp.Answer)
			resolver := citation.NewResolver(nil)
			resolver.ResolveAll(refs, resp.PDFSources)

			if asJSON {
				out := struct {
					Answer     string                      `json:"answer"`
					References []citation.ArticleReference `json:"references"`
					Sources    []lawapi.Source             `json:"sources"`
					Timing     *lawapi.TimingInfo          `json:"timing,omitempty"`
				}{cleaned, refs, resp.Sources, resp.Timing}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Println(cleaned)
			if len(refs) > 0 {
				fmt.Println("\nTrích dẫn:")
				for _, ref := range refs {
					src := resolver.Resolve(ref, resp.PDFSources)
					line := fmt.Sprintf("  - %s (%s", ref.Text, resolver.DisplayName(src))
					if src.PageNum > 0 {
						line += fmt.Sprintf(", trang %d", src.PageNum)
					}
					fmt.Println(line + ")")
				}
			}
			if resp.Timing != nil && resp.Timing.TotalMs > 0 {
				fmt.Printf("\n(%.1fs, %s)\n", float64(resp.Timing.TotalMs)/1000, resp.SearchMethod)
			}
			return nil
		},
	}

	cmd.Flags().String("mode", "fast", "Question mode (fast or quality)")
	cmd.Flags().Bool("json", false, "Print the raw answer as JSON")
	return cmd
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List stored conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := config.LoadProfile()
			if err != nil {
				return fmt.Errorf("failed to load profile config: %w", err)
			}

			store, err := chat.NewStore(profile.StoragePath)
			if err != nil {
				return fmt.Errorf("failed to open chat store: %w", err)
			}
			if err := store.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize chat store: %w", err)
			}
			defer store.Close()

			convs, err := store.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("No conversations yet.")
				return nil
			}

			for _, conv := range convs {
				marker := " "
				if conv.Pinned {
					marker = "★"
				}
				fmt.Printf("%s %s  %s  (%s)\n", marker, conv.ID, conv.Title,
					conv.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func openCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [article]",
		Short: "Locate an article inside its source document",
		Long: `Open fetches the source PDF for an article, finds the page the
article starts on and prints that page's text with the article marked.

Example:
  luat-chat open 8
  luat-chat open 51 --domain hon_nhan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainID, _ := cmd.Flags().GetString("domain")
			textOnly, _ := cmd.Flags().GetBool("text-only")

			api, profile, err := newClient()
			if err != nil {
				return err
			}
			if domainID == "" {
				domainID = profile.Locator.DefaultDomain
			}

			articleNum := strings.TrimSpace(args[0])
			registry := citation.NewRegistry()
			pdfFile := registry.PDFFile(domainID)
			if pdfFile == "" {
				return fmt.Errorf("unknown document family %q", domainID)
			}

			ctx := cmd.Context()
			data, err := api.GetDocument(ctx, domainID, pdfFile)
			if err != nil {
				return fmt.Errorf("failed to fetch document: %w", err)
			}

			doc, err := locator.OpenDocument(data)
			if err != nil {
				return fmt.Errorf("failed to open document: %w", err)
			}
			defer doc.Close()

			loc := locator.New(api,
				locator.WithCacheTTL(time.Duration(profile.Locator.CacheTTLMinutes)*time.Minute))
			src := &lawapi.PDFSource{
				DomainID:   domainID,
				PDFFile:    pdfFile,
				ArticleNum: articleNum,
			}
			page := loc.LocatePage(ctx, src, doc)

			text, err := doc.PageText(ctx, page)
			if err != nil {
				return fmt.Errorf("failed to read page %d: %w", page, err)
			}

			fmt.Printf("%s · Điều %s · trang %d/%d\n\n", registry.DisplayName(domainID), articleNum, page, doc.PageCount())
			if textOnly {
				fmt.Println(text)
				return nil
			}

			layer := highlight.LayerFromPageText(text)
			result := highlight.Mark(layer, articleNum)
			for i, span := range layer.Spans {
				prefix := "  "
				if result.Found {
					switch result.Marks[i] {
					case highlight.MarkTitle:
						prefix = ">> "
					case highlight.MarkBody:
						prefix = " | "
					}
				}
				fmt.Println(prefix + span.Text)
			}
			if !result.Found {
				fmt.Printf("\nArticle %s was not found on page %d.\n", articleNum, page)
			}
			return nil
		},
	}

	cmd.Flags().String("domain", "", "Document family (defaults to the configured domain)")
	cmd.Flags().Bool("text-only", false, "Print the page text without marks")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := config.LoadProfile()
			if err != nil {
				return err
			}
			configPath, err := config.GetProfileConfigPath()
			if err != nil {
				return err
			}

			fmt.Printf("Config file:  %s\n", configPath)
			fmt.Printf("Backend:      %s (timeout %ds)\n", profile.Backend.URL, profile.Backend.TimeoutSeconds)
			fmt.Printf("Storage:      %s\n", profile.StoragePath)
			fmt.Printf("Data dir:     %s\n", profile.DataDir)
			fmt.Printf("Server:       %s:%d\n", profile.Server.Host, profile.Server.Port)
			fmt.Printf("Domain:       %s\n", profile.Locator.DefaultDomain)
			fmt.Printf("Cache TTL:    %dm\n", profile.Locator.CacheTTLMinutes)
			return nil
		},
	}
}
