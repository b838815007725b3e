/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/cicap/personnel/cmd"

func main() {
	cmd.Execute()
}
