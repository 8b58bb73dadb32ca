package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/sgd"
)

var (
	trainVariant     string
	trainVariantFile string
	trainRatings     string
	trainTags        string
	trainFeatures    string
	trainTestRatio   float64
	trainExport      bool
	trainJSON        bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model variant and optionally export it",
	Long: `Train a hybrid model on a ratings file (user item rating [timestamp]) and an
optional tag file (user item tag [timestamp]).

Examples:
  hybridrec train --ratings ratings.txt --tags tags.txt --variant classification
  hybridrec train -c app.yaml --test-ratio 0.2 --export`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	f := trainCmd.Flags()
	f.StringVar(&trainVariant, "variant", "", "model variant (see `hybridrec variants`)")
	f.StringVar(&trainVariantFile, "variant-file", "", "YAML file with variant and options")
	f.StringVar(&trainRatings, "ratings", "", "ratings file")
	f.StringVar(&trainTags, "tags", "", "tag file")
	f.StringVar(&trainFeatures, "item-features", "", "item feature file (item feature...)")
	f.Float64Var(&trainTestRatio, "test-ratio", -1, "hold out this share of ratings for evaluation")
	f.BoolVar(&trainExport, "export", false, "export factors and neighbor lists to the configured store")
	f.BoolVar(&trainJSON, "json", false, "print the training report as JSON")
}

// applyDataFlags 让命令行参数覆盖配置文件中的数据路径
func applyDataFlags(ratings, tags, features string, testRatio float64) {
	if ratings != "" {
		appCfg.Data.Ratings = ratings
	}
	if tags != "" {
		appCfg.Data.Tags = tags
	}
	if features != "" {
		appCfg.Data.ItemFeatures = features
	}
	if testRatio >= 0 {
		appCfg.Eval.TestRatio = testRatio
	}
}

type trainOutput struct {
	Variant    string          `json:"variant"`
	Report     *sgd.Report     `json:"report"`
	Evaluation *sgd.Evaluation `json:"evaluation,omitempty"`
	Exported   bool            `json:"exported"`
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	srv := serveMetrics(appCfg.Metrics.Addr)
	defer shutdown(srv)

	applyDataFlags(trainRatings, trainTags, trainFeatures, trainTestRatio)
	if err := appCfg.Validate(); err != nil {
		return err
	}
	variant, mc, err := modelConfig(appCfg, trainVariant, trainVariantFile)
	if err != nil {
		return err
	}
	t, err := trainModel(ctx, appCfg, variant, mc)
	if err != nil {
		return err
	}

	out := trainOutput{Variant: variant, Report: t.report, Evaluation: t.evaluation}
	if trainExport {
		kv, err := openStore(ctx, appCfg)
		if err != nil {
			return err
		}
		defer kv.Close()
		if _, err := export(ctx, kv, appCfg, t); err != nil {
			return err
		}
		out.Exported = true
	}

	w := cmd.OutOrStdout()
	if trainJSON {
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	fmt.Fprintf(w, "variant:   %s\n", variant)
	fmt.Fprintf(w, "run:       %s\n", t.report.RunID)
	fmt.Fprintf(w, "epochs:    %d (converged: %v)\n", len(t.report.Epochs), t.report.Converged)
	fmt.Fprintf(w, "loss:      %.6f\n", t.report.FinalLoss())
	if t.evaluation != nil {
		fmt.Fprintf(w, "rmse:      %.4f\n", t.evaluation.RMSE)
		fmt.Fprintf(w, "mae:       %.4f\n", t.evaluation.MAE)
	}
	if out.Exported {
		fmt.Fprintf(w, "exported:  %s\n", appCfg.Export.Prefix)
	}
	return nil
}
