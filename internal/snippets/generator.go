package snippets

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type Framework string

const (
	FrameworkHTML   Framework = "html"
	FrameworkReact  Framework = "react"
	FrameworkVue    Framework = "vue"
	FrameworkSvelte Framework = "svelte"
	FrameworkPHP    Framework = "php"
)

// Frameworks lists the supported targets in prompt order.
var Frameworks = []Framework{FrameworkHTML, FrameworkReact, FrameworkVue, FrameworkSvelte, FrameworkPHP}

type Config struct {
	Region     string
	ServerURL  string
	Conditions []string // page conditionals true on the page embedding the region
}

type SnippetFile struct {
	Filename string
	Content  string
}

type templateData struct {
	Region       string
	RegionPascal string
	ServerURL    string
	Conditions   string
}

// Generate returns the embed code for a region. Unknown frameworks fall back
// to plain HTML.
func Generate(framework Framework, config Config) ([]SnippetFile, error) {
	data := templateData{
		Region:       config.Region,
		RegionPascal: toPascalCase(config.Region),
		ServerURL:    strings.TrimRight(config.ServerURL, "/"),
		Conditions:   strings.Join(config.Conditions, ","),
	}

	filename, tmpl := "region.html", htmlTmpl
	switch framework {
	case FrameworkReact:
		filename, tmpl = data.RegionPascal+"Region.tsx", reactTmpl
	case FrameworkVue:
		filename, tmpl = data.RegionPascal+"Region.vue", vueTmpl
	case FrameworkSvelte:
		filename, tmpl = data.RegionPascal+"Region.svelte", svelteTmpl
	case FrameworkPHP:
		filename, tmpl = "message-region.php", phpTmpl
	}

	content, err := renderTemplate(filename, tmpl, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", filename, err)
	}

	return []SnippetFile{{Filename: filename, Content: content}}, nil
}

// toPascalCase turns "homepage_middle" into "HomepageMiddle".
func toPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func renderTemplate(name, content string, data templateData) (string, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{"split": splitList}).Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const htmlTmpl = `<!-- message-inserter region: {{.Region}} -->
<script src="{{.ServerURL}}/mi.js" defer></script>

<div data-mi-region="{{.Region}}"{{if .Conditions}} data-mi-conditions="{{.Conditions}}"{{end}}></div>
`

const reactTmpl = `'use client';

import { useEffect, useRef } from 'react';

const SERVER_URL = '{{.ServerURL}}';

interface Props {
  conditions?: string[];
}

export function {{.RegionPascal}}Region({ conditions = [{{range $i, $c := split .Conditions}}{{if $i}}, {{end}}'{{$c}}'{{end}}] }: Props) {
  const ref = useRef<HTMLDivElement>(null);

  useEffect(() => {
    const params = new URLSearchParams({ conditions: conditions.join(','), width: String(window.innerWidth) });
    fetch(SERVER_URL + '/regions/{{.Region}}?' + params, { credentials: 'include' })
      .then((res) => (res.ok ? res.text() : ''))
      .then((html) => {
        if (ref.current) ref.current.innerHTML = html;
      })
      .catch(() => {});
  }, [conditions.join(',')]);

  const onClick = (e: React.MouseEvent<HTMLDivElement>) => {
    const btn = (e.target as HTMLElement).closest<HTMLElement>('[data-mi-dismiss]');
    if (!btn) return;
    fetch(SERVER_URL + '/dismiss/' + btn.dataset.miDismiss, { method: 'POST', credentials: 'include' }).catch(() => {});
    btn.closest('.mi-message')?.remove();
  };

  return <div ref={ref} onClick={onClick} data-mi-region-host="{{.Region}}" />;
}
`

const vueTmpl = `<template>
  <div ref="host" data-mi-region="{{.Region}}" data-mi-conditions="{{.Conditions}}"></div>
</template>

<script setup lang="ts">
import { onMounted } from 'vue';

onMounted(() => {
  if (document.querySelector('script[data-mi-loader]')) return;
  const s = document.createElement('script');
  s.src = '{{.ServerURL}}/mi.js';
  s.defer = true;
  s.dataset.miLoader = '1';
  document.head.appendChild(s);
});
</script>
`

const svelteTmpl = `<svelte:head>
  <script src="{{.ServerURL}}/mi.js" defer></script>
</svelte:head>

<div data-mi-region="{{.Region}}" data-mi-conditions="{{.Conditions}}"></div>
`

const phpTmpl = `<?php
// message-inserter region: {{.Region}}
$mi_conditions = array_keys(array_filter([
  'is_front_page' => is_front_page(),
  'is_home'       => is_home(),
  'is_single'     => is_single(),
  'is_page'       => is_page(),
  'is_archive'    => is_archive(),
  'is_search'     => is_search(),
  'is_404'        => is_404(),
]));
?>
<script src="{{.ServerURL}}/mi.js" defer></script>
<div data-mi-region="{{.Region}}" data-mi-conditions="<?php echo esc_attr(implode(',', $mi_conditions)); ?>"></div>
`
