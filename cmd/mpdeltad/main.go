// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command mpdeltad runs the editing daemon: the HTTP API plus the project
// store. Unlike the teacher's start/start.go, which regenerates a main.go
// with addon imports spliced in from env.yaml before each run, mpdelta's
// component classes are a fixed built-in set, so they're blank-imported
// directly here for their init()-time classloader.Register calls.
package main

import (
	"flag"
	"fmt"
	"os"

	"mpdelta"

	_ "mpdelta/components/mediafile"
	_ "mpdelta/components/shape"
	_ "mpdelta/components/text"
)

func main() {
	envFlag := flag.String("env", "./configs/env.yaml", "path to env.yaml")
	flag.Parse()

	if err := mpdelta.Run(*envFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
