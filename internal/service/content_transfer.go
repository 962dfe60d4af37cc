package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/portfolio/internal/content"
	"gopkg.in/yaml.v3"
)

// ExportContent 将已保存的全部分区写成 YAML。没有内容时返回 ErrContentNotFound。
func ExportContent(ctx context.Context, repo *SectionRepository, w io.Writer) (int, error) {
	aggregate, err := repo.LoadAllSections(ctx)
	if err != nil {
		return 0, err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(aggregate); err != nil {
		return 0, fmt.Errorf("encode content: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode content: %w", err)
	}
	return aggregate.Len(), nil
}

// ImportContent 读取 YAML 并保存其中出现的分区，未知字段会被拒绝。
func ImportContent(ctx context.Context, repo *SectionRepository, r io.Reader) (int, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var aggregate content.SiteContent
	if err := dec.Decode(&aggregate); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: empty document", ErrSectionInvalid)
		}
		return 0, fmt.Errorf("%w: %v", ErrSectionInvalid, err)
	}
	if aggregate.Len() == 0 {
		return 0, fmt.Errorf("%w: no sections in document", ErrSectionInvalid)
	}

	if err := repo.SaveAllSections(ctx, &aggregate); err != nil {
		return 0, err
	}
	return aggregate.Len(), nil
}
