package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/glesirok/apicmd/pkg/config"
	"github.com/glesirok/apicmd/pkg/hierarchy"
	"github.com/glesirok/apicmd/pkg/infer"
)

// HierarchySuffix 是批量模式下输出文件的后缀
const HierarchySuffix = ".hierarchy.yaml"

// Processor 加载 OpenAPI 文档并生成命令层级
type Processor struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer
}

// NewProcessor 创建处理器
func NewProcessor(cfg *config.Config, logger *log.Logger) (*Processor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Processor{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
	}, nil
}

// SetOutput 设置 dry-run 的输出位置
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// Load 读取并解析 OpenAPI 文档（YAML 或 JSON）
func (p *Processor) Load(ctx context.Context, specPath string) (*openapi3.T, error) {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.LoadData(ctx, data)
}

// LoadData 从内存数据解析 OpenAPI 文档
func (p *Processor) LoadData(ctx context.Context, data []byte) (*openapi3.T, error) {
	// 检测并移除 UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse openapi: %w", err)
	}

	if p.cfg.Validate {
		if err := doc.Validate(ctx); err != nil {
			return nil, fmt.Errorf("validate openapi: %w", err)
		}
	}

	return doc, nil
}

// Build 加载文档并构建层级
func (p *Processor) Build(ctx context.Context, specPath string) (*hierarchy.Hierarchy, error) {
	doc, err := p.Load(ctx, specPath)
	if err != nil {
		return nil, err
	}
	return p.BuildDocument(doc)
}

// BuildDocument 从已加载的文档构建层级
func (p *Processor) BuildDocument(doc *openapi3.T) (*hierarchy.Hierarchy, error) {
	opts := p.cfg.BuildOptions()
	opts.Logger = p.logger

	h, err := hierarchy.FromOpenAPI(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("build hierarchy: %w", err)
	}
	return h, nil
}

// Vocabulary 返回文档推断出的动词和实体
func (p *Processor) Vocabulary(ctx context.Context, specPath string) (infer.Result, error) {
	doc, err := p.Load(ctx, specPath)
	if err != nil {
		return infer.Result{}, err
	}

	opts := p.cfg.BuildOptions()
	opts.Logger = p.logger
	return hierarchy.VocabularyFromOpenAPI(doc, opts)
}

// ProcessFile 处理单个 OpenAPI 文件，把层级写到 outputPath
// dry-run 或 outputPath 为空时写到标准输出
func (p *Processor) ProcessFile(ctx context.Context, inputPath, outputPath string, dryRun, backup bool) error {
	h, err := p.Build(ctx, inputPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.Encode(&buf); err != nil {
		return err
	}

	if dryRun || outputPath == "" {
		if dryRun {
			fmt.Fprintf(p.out, "=== Dry-run: %s ===\n", inputPath)
		}
		_, err := p.out.Write(buf.Bytes())
		return err
	}

	// 只有覆盖已有文件时才备份
	if backup {
		if _, err := os.Stat(outputPath); err == nil {
			if err := copyFile(outputPath, outputPath+".bak"); err != nil {
				return fmt.Errorf("backup file: %w", err)
			}
		}
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	p.logger.Info("wrote hierarchy", "spec", inputPath, "output", outputPath)
	return nil
}

// ProcessDirectory 批量处理目录下的所有 OpenAPI 文件
// 每个文件输出为 <name>.hierarchy.yaml，outputDir 为空时写在原文件旁边
func (p *Processor) ProcessDirectory(ctx context.Context, inputDir, outputDir string, dryRun, backup bool) error {
	// 确保输出目录存在
	if !dryRun && outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	// 遍历目录
	return filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !isSpecFile(path) {
			return nil
		}

		// 计算输出路径
		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		base := strings.TrimSuffix(relPath, filepath.Ext(relPath)) + HierarchySuffix
		outputPath := filepath.Join(filepath.Dir(path), filepath.Base(base))
		if outputDir != "" {
			outputPath = filepath.Join(outputDir, base)
			if !dryRun {
				if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
		}

		p.logger.Info("processing", "spec", path)
		if err := p.ProcessFile(ctx, path, outputPath, dryRun, backup); err != nil {
			return fmt.Errorf("process %s: %w", path, err)
		}

		return nil
	})
}

// isSpecFile 只处理 .yaml、.yml 和 .json，跳过已生成的层级文件
func isSpecFile(path string) bool {
	if strings.HasSuffix(path, HierarchySuffix) {
		return false
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// copyFile 复制文件
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
