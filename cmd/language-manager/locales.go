/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */
package main

import "github.com/prinbee/prinbee/pkg/language"

// builtinLocales is a small, hand-picked subset of the Unicode CLDR
// locale set: enough common country/language pairs for --list-available
// and --create to have something real to merge, without pulling in a
// live CLDR dependency (spec.md section 6; SPEC_FULL.md section 3 notes
// this is "a small embedded table, not a live CLDR dependency").
var builtinLocales = []language.Candidate{
	{Country: "United States", Language: "English", Country2Letters: "US", Language2Letters: "en", Language3Letters: "eng"},
	{Country: "United Kingdom", Language: "English", Country2Letters: "GB", Language2Letters: "en", Language3Letters: "eng"},
	{Country: "France", Language: "French", Country2Letters: "FR", Language2Letters: "fr", Language3Letters: "fre"},
	{Country: "Germany", Language: "German", Country2Letters: "DE", Language2Letters: "de", Language3Letters: "ger"},
	{Country: "Spain", Language: "Spanish", Country2Letters: "ES", Language2Letters: "es", Language3Letters: "spa"},
	{Country: "Italy", Language: "Italian", Country2Letters: "IT", Language2Letters: "it", Language3Letters: "ita"},
	{Country: "Portugal", Language: "Portuguese", Country2Letters: "PT", Language2Letters: "pt", Language3Letters: "por"},
	{Country: "Brazil", Language: "Portuguese", Country2Letters: "BR", Language2Letters: "pt", Language3Letters: "por"},
	{Country: "Russia", Language: "Russian", Country2Letters: "RU", Language2Letters: "ru", Language3Letters: "rus"},
	{Country: "China", Language: "Chinese", Country2Letters: "CN", Language2Letters: "zh", Language3Letters: "zho"},
	{Country: "Japan", Language: "Japanese", Country2Letters: "JP", Language2Letters: "ja", Language3Letters: "jpn"},
	{Country: "South Korea", Language: "Korean", Country2Letters: "KR", Language2Letters: "ko", Language3Letters: "kor"},
	{Country: "Netherlands", Language: "Dutch", Country2Letters: "NL", Language2Letters: "nl", Language3Letters: "dut"},
	{Country: "Sweden", Language: "Swedish", Country2Letters: "SE", Language2Letters: "sv", Language3Letters: "swe"},
	{Country: "Poland", Language: "Polish", Country2Letters: "PL", Language2Letters: "pl", Language3Letters: "pol"},
	{Country: "Turkey", Language: "Turkish", Country2Letters: "TR", Language2Letters: "tr", Language3Letters: "tur"},
	{Country: "India", Language: "Hindi", Country2Letters: "IN", Language2Letters: "hi", Language3Letters: "hin"},
	{Country: "Mexico", Language: "Spanish", Country2Letters: "MX", Language2Letters: "es", Language3Letters: "spa"},
	{Country: "Canada", Language: "English", Country2Letters: "CA", Language2Letters: "en", Language3Letters: "eng"},
	{Country: "Canada", Language: "French", Country2Letters: "CA", Language2Letters: "fr", Language3Letters: "fre"},
}
