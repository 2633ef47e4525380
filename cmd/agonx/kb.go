package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/doAIs/AgonX/internal/knowledge"
)

func newKBCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Query and manage knowledge collections",
	}
	cmd.AddCommand(newKBSearchCmd(getApp), newKBConfigCmd(getApp), newKBCollectionsCmd(getApp), newKBDocsCmd(getApp))
	return cmd
}

func newKBSearchCmd(getApp func() *app) *cobra.Command {
	var (
		collections []string
		topK        int
		threshold   float64
		mode        string
		enhanced    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search one or more collections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			if len(collections) == 0 {
				if a.cfg.DefaultCollection == "" {
					return fmt.Errorf("no collection given: pass --collection or set default_collection")
				}
				collections = []string{a.cfg.DefaultCollection}
			}

			req := knowledge.SearchRequest{
				Query:               query,
				TopK:                topK,
				SimilarityThreshold: threshold,
				SearchMode:          mode,
			}

			// Collections are independent; query them concurrently.
			plain := make([][]knowledge.RetrievalResult, len(collections))
			rich := make([][]knowledge.EnhancedRetrievalResult, len(collections))
			g, gctx := errgroup.WithContext(ctx)
			for i, collectionID := range collections {
				i, collectionID := i, collectionID
				g.Go(func() error {
					perCollection := req
					perCollection.CollectionID = collectionID
					if enhanced {
						hits, err := a.kb.EnhancedSearch(gctx, perCollection)
						if err != nil {
							return err
						}
						rich[i] = hits
						return nil
					}
					hits, err := a.kb.Search(gctx, perCollection)
					if err != nil {
						return err
					}
					plain[i] = hits
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for i, collectionID := range collections {
				fmt.Printf("%s\n", titleText(collectionID))
				if enhanced {
					renderEnhancedHits(rich[i])
				} else {
					renderHits(plain[i])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&collections, "collection", nil, "collection id (repeatable)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "override result count")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "override similarity threshold")
	cmd.Flags().StringVar(&mode, "mode", "", "search mode: vector, keyword, or hybrid")
	cmd.Flags().BoolVar(&enhanced, "enhanced", false, "include surrounding context and provenance")
	return cmd
}

func renderHits(hits []knowledge.RetrievalResult) {
	if len(hits) == 0 {
		fmt.Println(mutedText("  no matches"))
		return
	}
	for i, hit := range hits {
		fmt.Printf("  %d. %s %s\n     %s\n", i+1, scoreText(fmt.Sprintf("%.3f", hit.Score)), mutedText(hit.Source), firstLine(hit.Content))
	}
}

func renderEnhancedHits(hits []knowledge.EnhancedRetrievalResult) {
	if len(hits) == 0 {
		fmt.Println(mutedText("  no matches"))
		return
	}
	for i, hit := range hits {
		fmt.Printf("  %d. %s %s\n     %s\n", i+1, scoreText(fmt.Sprintf("%.3f", hit.Score)), mutedText(hit.Source), firstLine(hit.Content))
		if hit.Document != nil {
			location := hit.Document.Filename
			if hit.PageInfo != nil {
				location += ", p." + strconv.Itoa(hit.PageInfo.PageNumber)
			}
			fmt.Printf("     %s\n", mutedText(location))
		}
		for _, before := range hit.Context.Before {
			fmt.Printf("     %s\n", mutedText("… "+firstLine(before)))
		}
		for _, after := range hit.Context.After {
			fmt.Printf("     %s\n", mutedText(firstLine(after)+" …"))
		}
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func newKBConfigCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or update a collection's retrieval config",
	}

	get := &cobra.Command{
		Use:   "get <collection>",
		Short: "Show retrieval config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			cfg, err := a.kb.GetConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}

	var (
		topK      int
		topN      int
		threshold float64
		mode      string
		rerank    bool
	)
	set := &cobra.Command{
		Use:   "set <collection>",
		Short: "Patch retrieval config; unset flags are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			var patch knowledge.ConfigPatch
			if cmd.Flags().Changed("top-k") {
				patch.TopK = &topK
			}
			if cmd.Flags().Changed("top-n") {
				patch.TopN = &topN
			}
			if cmd.Flags().Changed("threshold") {
				patch.SimilarityThreshold = &threshold
			}
			if cmd.Flags().Changed("mode") {
				patch.SearchMode = &mode
			}
			if cmd.Flags().Changed("rerank") {
				patch.RerankEnabled = &rerank
			}
			cfg, err := a.kb.UpdateConfig(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}
	set.Flags().IntVar(&topK, "top-k", 0, "results to retrieve")
	set.Flags().IntVar(&topN, "top-n", 0, "results to keep after rerank")
	set.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold")
	set.Flags().StringVar(&mode, "mode", "", "search mode: vector, keyword, or hybrid")
	set.Flags().BoolVar(&rerank, "rerank", false, "enable reranking")

	cmd.AddCommand(get, set)
	return cmd
}

func printConfig(cfg knowledge.RetrievalConfig) {
	fmt.Printf("chunk_size: %d\nchunk_overlap: %d\ntop_k: %d\ntop_n: %d\nsimilarity_threshold: %g\nsearch_mode: %s\nrerank_enabled: %t\n",
		cfg.ChunkSize, cfg.ChunkOverlap, cfg.TopK, cfg.TopN, cfg.SimilarityThreshold, cfg.SearchMode, cfg.RerankEnabled)
}

func newKBCollectionsCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage knowledge collections",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			collections, err := a.kb.ListCollections(cmd.Context())
			if err != nil {
				return err
			}
			if len(collections) == 0 {
				fmt.Println(mutedText("no collections"))
				return nil
			}
			for _, collection := range collections {
				fmt.Printf("%s  %s  %s\n", mutedText(collection.ID), titleText(collection.Name),
					mutedText(fmt.Sprintf("%d documents", collection.DocumentCount)))
			}
			return nil
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			collection, err := a.kb.CreateCollection(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Printf("created %s %s\n", mutedText(collection.ID), titleText(collection.Name))
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "collection description")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.kb.DeleteCollection(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", mutedText(args[0]))
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

func newKBDocsCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage documents within a collection",
	}

	var page int
	list := &cobra.Command{
		Use:   "list <collection-id>",
		Short: "List a collection's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			listing, err := a.kb.ListDocuments(cmd.Context(), args[0], page, a.cfg.PageSize)
			if err != nil {
				return err
			}
			if len(listing.Items) == 0 {
				fmt.Println(mutedText("no documents"))
				return nil
			}
			for _, doc := range listing.Items {
				fmt.Printf("%s  %s  %s\n", mutedText(doc.ID), titleText(doc.Filename),
					mutedText(fmt.Sprintf("%d chunks, %s", doc.ChunkCount, doc.Status)))
			}
			fmt.Println(mutedText(fmt.Sprintf("page %d of %d documents", listing.Page, listing.Total)))
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")

	del := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.kb.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", mutedText(args[0]))
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}
