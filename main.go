package main

import (
	"errors"
	"io/fs"

	"urban-growth/cmd"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Could not load .env: %v", err)
	}
	cmd.Execute()
}
