// Package main provides the entry point for the websift CLI.
//
// Websift is a selector-driven scraping engine for public web pages.
// It fetches pages politely, extracts structured records with CSS
// selector rules, and writes the results as a summary, JSON, CSV, or
// Markdown.
//
// Usage:
//
//	websift scrape <url>
//	websift search <keyword> --seed <url>
//	websift history
//
// See --help for all available options.
package main

// main is the entry point for websift.
func main() {
	Execute()
}
