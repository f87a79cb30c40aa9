package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/bugsnag/panicwrap"
	"github.com/sirupsen/logrus"

	"github.com/compresslab/compressor/src/app"
	"github.com/compresslab/compressor/src/aws"
	"github.com/compresslab/compressor/src/configure"
	"github.com/compresslab/compressor/src/containers"
	"github.com/compresslab/compressor/src/global"
	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/rmq"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		logrus.Error(s)
	})
	if err != nil {
		logrus.Error("failed to setup panic handler: ", err)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		logrus.Info("Batch Image Compressor")
		logrus.Infof("Version: %s", Version)
		logrus.Infof("build.Time: %s", Time)
		logrus.Infof("build.User: %s", User)
	}

	logrus.Debug("MaxProcs: ", runtime.GOMAXPROCS(0))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	c, cancel := context.WithCancel(context.Background())

	ctx := global.New(c, config)

	ctx.Instances().Handles = handle.NewStore()
	ctx.Instances().Codec = containers.NewCodec(config.WorkingDir, config.CwebpPath)
	if config.Rmq.ServerURL != "" {
		ctx.Instances().Rmq = rmq.New(ctx)
	}
	if config.Aws.Region != "" {
		ctx.Instances().AwsS3 = aws.NewS3(ctx)
	}

	a, err := app.New(ctx, ctx.Instances().Codec)
	if err != nil {
		logrus.Fatal("failed to start: ", err)
	}

	finished := make(chan error, 1)
	go func() {
		finished <- a.Run()
	}()

	logrus.Info("running")

	status := 0
	select {
	case err := <-finished:
		if err != nil {
			logrus.Error("run failed: ", err)
			status = 1
			if errors.Is(err, app.ErrNoInputs) {
				status = 2
			}
		}
		cancel()
	case <-sig:
		cancel()
		go func() {
			select {
			case <-time.After(time.Minute):
			case <-sig:
			}
			logrus.Fatal("force shutdown")
		}()

		logrus.Infof("shutting down, %d task(s) in flight", ctx.InFlight())
		<-finished
		status = 130
	}

	ctx.Wait()

	if ctx.Instances().Rmq != nil {
		ctx.Instances().Rmq.Shutdown()
	}

	logrus.Info("shutdown")
	os.Exit(status)
}
