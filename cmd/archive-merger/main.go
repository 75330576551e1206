package main

import (
	_ "go-archive-merger/docs"
)

// @title Archive Merger API
// @version 1.0
// @description Merges zip archives of CSV files into one pipe-delimited file with pollable progress.
// @BasePath /api
func main() {
	Execute()
}
