// Package web 内嵌前台与后台的 HTML 模板
package web

import "embed"

// Templates 包含 template 目录下的全部页面
//
//go:embed template/*.html
var Templates embed.FS
