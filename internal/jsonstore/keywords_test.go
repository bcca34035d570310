package jsonstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords_Basic(t *testing.T) {
	got := extractKeywords("Molecular Structure of Nucleic Acids", "")
	assert.Equal(t, []string{"molecular", "structure", "nucleic", "acids"}, got)
}

func TestExtractKeywords_SkipsShortWords(t *testing.T) {
	got := extractKeywords("DNA and RNA in gene expression", "")
	// "DNA", "RNA", "gene" are three characters or fewer.
	assert.Equal(t, []string{"expression"}, got)
}

func TestExtractKeywords_SkipsStopWords(t *testing.T) {
	got := extractKeywords("This study shows that these findings could matter", "")
	assert.NotContains(t, got, "this")
	assert.NotContains(t, got, "that")
	assert.NotContains(t, got, "these")
	assert.NotContains(t, got, "could")
	assert.Contains(t, got, "study")
	assert.Contains(t, got, "findings")
}

func TestExtractKeywords_StripsPunctuation(t *testing.T) {
	got := extractKeywords("Apoptosis, autophagy; necrosis: pathways (reviewed)", "")
	assert.Equal(t, []string{"apoptosis", "autophagy", "necrosis", "pathways", "reviewed"}, got)
}

func TestExtractKeywords_Deduplicates(t *testing.T) {
	got := extractKeywords("cancer cells", "cancer cells resist treatment")
	assert.Equal(t, []string{"cancer", "cells", "resist", "treatment"}, got)
}

func TestExtractKeywords_CapsAtTwenty(t *testing.T) {
	var abstract string
	for i := 0; i < 40; i++ {
		abstract += fmt.Sprintf("keyword%02d ", i)
	}
	got := extractKeywords("", abstract)
	assert.Len(t, got, maxKeywords)
	assert.Equal(t, "keyword00", got[0])
	assert.Equal(t, "keyword19", got[19])
}

func TestExtractKeywords_EmptyInput(t *testing.T) {
	assert.Empty(t, extractKeywords("", ""))
}

func TestExtractKeywords_CombinesTitleAndAbstract(t *testing.T) {
	got := extractKeywords("kinase activity", "inhibitor binding assays")
	assert.Equal(t, []string{"kinase", "activity", "inhibitor", "binding", "assays"}, got)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "homo sapiens", normalizeText("Homo Sapiens"))
	// Composed and decomposed spellings normalize to the same string.
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	assert.Equal(t, normalizeText(composed), normalizeText(decomposed))
}
