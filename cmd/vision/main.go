// Package main provides the vision CLI for training and evaluating
// convolutional image classifiers built on the Born ML framework.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/optim"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/born-ml/vision/checkpoint"
	"github.com/born-ml/vision/convnet"
	"github.com/born-ml/vision/dataset"
	"github.com/born-ml/vision/eval"
	"github.com/born-ml/vision/train"
)

var (
	appName = "vision"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := makeApp().Run(os.Args); err != nil {
		logger.WithField("err", err).Error("shutting down due to error")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	dataFlags := []cli.Flag{
		cli.StringFlag{
			Name:   "data",
			Value:  "./data",
			EnvVar: "VISION_DATA",
			Usage:  "Path to the dataset (IDX directory or CSV file)",
		},
		cli.StringFlag{
			Name:   "format",
			Value:  "idx",
			EnvVar: "VISION_FORMAT",
			Usage:  "Dataset format (supported: idx, csv, synthetic)",
		},
		cli.StringFlag{
			Name:   "classes",
			Value:  strings.Join(dataset.Digits(), ","),
			EnvVar: "VISION_CLASSES",
			Usage:  "Comma-separated class names in label order",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 28,
			Usage: "Image height for csv/synthetic formats (idx reads it from the file header)",
		},
		cli.IntFlag{
			Name:  "width",
			Value: 28,
			Usage: "Image width for csv/synthetic formats",
		},
		cli.IntFlag{
			Name:  "samples",
			Value: 0,
			Usage: "Max samples to load (0 = all)",
		},
		cli.IntFlag{
			Name:  "batch",
			Value: 32,
			Usage: "Mini-batch size",
		},
		cli.StringFlag{
			Name:   "device",
			Value:  "cpu",
			EnvVar: "VISION_DEVICE",
			Usage:  "Compute device (supported in this build: cpu)",
		},
	}

	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Usage = "train and evaluate convolutional image classifiers"
	app.Commands = []cli.Command{
		{
			Name:  "train",
			Usage: "train a model and optionally save a checkpoint",
			Flags: append([]cli.Flag{
				cli.IntFlag{Name: "epochs", Value: 10, Usage: "Number of training epochs"},
				cli.Float64Flag{Name: "lr", Value: 0.001, Usage: "Learning rate"},
				cli.StringFlag{Name: "optimizer", Value: "adam", Usage: "Optimizer (adam or sgd)"},
				cli.Float64Flag{Name: "momentum", Value: 0.9, Usage: "Momentum (sgd only)"},
				cli.Float64Flag{Name: "val-ratio", Value: 0.2, Usage: "Fraction of data held out for validation"},
				cli.StringFlag{Name: "checkpoint", Usage: "Write the trained model to this path"},
				cli.IntFlag{Name: "print-epochs", Value: 1, Usage: "Log progress every n-th epoch"},
				cli.IntFlag{Name: "print-steps", Value: 1, Usage: "Progress lines per reported epoch"},
				cli.IntFlag{Name: "loss-decimals", Value: 4, Usage: "Decimals in the reported loss"},
			}, dataFlags...),
			Action: runTrain,
		},
		{
			Name:  "eval",
			Usage: "evaluate a model, optionally restoring a checkpoint first",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "checkpoint", Usage: "Restore model parameters from this path"},
				cli.BoolTFlag{Name: "class-results", Usage: "Report per-class accuracy"},
				cli.BoolFlag{Name: "show-wrongs", Usage: "Render misclassified samples"},
				cli.IntFlag{Name: "n-wrongs", Value: 5, Usage: "Max misclassified samples to show"},
			}, dataFlags...),
			Action: runEval,
		},
	}
	return app
}

// resolveBackend maps the device flag to a compute backend exactly once;
// everything downstream receives the resolved backend instead of branching
// on device names.
func resolveBackend(device string) (*autodiff.Backend[*cpu.Backend], error) {
	switch device {
	case "", "cpu":
		return autodiff.New(cpu.New()), nil
	default:
		return nil, fmt.Errorf("unsupported device %q (this build supports: cpu)", device)
	}
}

func parseClasses(appCtx *cli.Context) (dataset.Classes, error) {
	names := strings.Split(appCtx.String("classes"), ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
		if names[i] == "" {
			return nil, fmt.Errorf("empty class name at position %d", i)
		}
	}
	return dataset.Classes(names), nil
}

func loadDataset(appCtx *cli.Context, classes dataset.Classes, training bool) (*dataset.Dataset, error) {
	path := appCtx.String("data")
	height := appCtx.Int("height")
	width := appCtx.Int("width")
	maxSamples := appCtx.Int("samples")

	var (
		data *dataset.Dataset
		err  error
	)
	switch format := appCtx.String("format"); format {
	case "idx":
		data, err = dataset.LoadIDX(path, training, maxSamples)
	case "csv":
		data, err = dataset.LoadCSV(path, height, width, len(classes), maxSamples)
	case "synthetic":
		numSamples := maxSamples
		if numSamples == 0 {
			numSamples = 200
		}
		data = dataset.Synthetic(numSamples, height, width, 1, len(classes))
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (supported: idx, csv, synthetic)", format)
	}
	if err != nil {
		return nil, err
	}
	if err := data.Validate(classes); err != nil {
		return nil, err
	}
	return data, nil
}

func runTrain(appCtx *cli.Context) error {
	backend, err := resolveBackend(appCtx.String("device"))
	if err != nil {
		return err
	}
	classes, err := parseClasses(appCtx)
	if err != nil {
		return err
	}

	data, err := loadDataset(appCtx, classes, true)
	if err != nil {
		return err
	}
	trainData, valData := data.Split(float32(appCtx.Float64("val-ratio")))
	logger.WithFields(logrus.Fields{
		"train": trainData.NumSamples(),
		"val":   valData.NumSamples(),
	}).Info("dataset loaded")

	model, err := convnet.New(
		convnet.DefaultConfig(data.Height, data.Width, data.Channels, len(classes)),
		backend,
	)
	if err != nil {
		return err
	}
	logger.WithField("architecture", model.String()).Info("model created")

	var optimizer optim.Optimizer
	lr := float32(appCtx.Float64("lr"))
	switch name := appCtx.String("optimizer"); name {
	case "adam":
		optimizer = optim.NewAdam(model.Parameters(), optim.AdamConfig{
			LR:    lr,
			Betas: [2]float32{0.9, 0.999},
			Eps:   1e-8,
		}, backend)
	case "sgd":
		optimizer = optim.NewSGD(model.Parameters(), optim.SGDConfig{
			LR:       lr,
			Momentum: float32(appCtx.Float64("momentum")),
		}, backend)
	default:
		return fmt.Errorf("unsupported optimizer %q (supported: adam, sgd)", name)
	}

	trainLoader, err := dataset.NewLoader(trainData, appCtx.Int("batch"), true, backend)
	if err != nil {
		return err
	}

	trainCfg := train.Config{
		Epochs:       appCtx.Int("epochs"),
		PrintEpochs:  appCtx.Int("print-epochs"),
		PrintSteps:   appCtx.Int("print-steps"),
		LossDecimals: appCtx.Int("loss-decimals"),
		Logger:       logger,
	}
	if valData.NumSamples() > 0 {
		valLoader, err := dataset.NewLoader(valData, 256, false, backend)
		if err != nil {
			return err
		}
		trainCfg.OnEpochEnd = func(epoch int, meanLoss float64) error {
			report, err := eval.Run(model, valLoader, classes, backend, eval.Config{Logger: logger})
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"epoch":    epoch,
				"loss":     fmt.Sprintf("%.4f", meanLoss),
				"accuracy": fmt.Sprintf("%.2f%%", report.Accuracy()),
			}).Info("validation accuracy")
			return nil
		}
	}

	loss, err := train.Run(model, trainLoader, nn.NewCrossEntropyLoss(backend), optimizer, backend, trainCfg)
	if err != nil {
		return err
	}
	logger.WithField("loss", fmt.Sprintf("%.4f", loss)).Info("final epoch loss")

	if path := appCtx.String("checkpoint"); path != "" {
		if err := checkpoint.Save(path, model, classes); err != nil {
			return err
		}
		logger.WithField("path", path).Info("checkpoint saved")
	}
	return nil
}

func runEval(appCtx *cli.Context) error {
	backend, err := resolveBackend(appCtx.String("device"))
	if err != nil {
		return err
	}
	classes, err := parseClasses(appCtx)
	if err != nil {
		return err
	}

	data, err := loadDataset(appCtx, classes, false)
	if err != nil {
		return err
	}
	loader, err := dataset.NewLoader(data, appCtx.Int("batch"), false, backend)
	if err != nil {
		return err
	}

	model, err := convnet.New(
		convnet.DefaultConfig(data.Height, data.Width, data.Channels, len(classes)),
		backend,
	)
	if err != nil {
		return err
	}

	report, err := eval.Run(model, loader, classes, backend, eval.Config{
		Checkpoint:   appCtx.String("checkpoint"),
		ClassResults: appCtx.BoolT("class-results"),
		ShowWrongs:   appCtx.Bool("show-wrongs"),
		NWrongs:      appCtx.Int("n-wrongs"),
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	logger.WithField("accuracy", fmt.Sprintf("%.2f%%", report.Accuracy())).Info("evaluation finished")
	return nil
}
