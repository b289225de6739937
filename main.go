/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/whisperbox/webapp/cmd"

func main() {
	cmd.Execute()
}
