package main

import (
	"bytes"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/kernels"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// ListKernels prints every compute kernel with its declared workgroup size.
func ListKernels(ctx *cli.Context) error {
	setupLogging(ctx)

	pipelines, err := kernels.NewPipelines()
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range pipelines {
			p.Release()
		}
	}()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Kernel", "Workgroup", "Threads"})
	for _, p := range pipelines {
		size := p.Shader().WorkgroupSize()
		table.Append([]string{
			p.PipelineKey(),
			fmt.Sprintf("%dx%dx%d", size[0], size[1], size[2]),
			fmt.Sprintf("%d", size[0]*size[1]*size[2]),
		})
	}
	table.Render()
	logger.Noticef("%d kernels\n%s", len(pipelines), buf.String())
	return nil
}
