// seehuhn.de/go/evolve - approximate images with translucent triangles
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package testcases

//go:generate go run ./export

// All contains all targets, organised by category.
var All = map[string][]Target{
	"flat":      flatCases,
	"shapes":    shapeCases,
	"curves":    curveCases,
	"transform": transformCases,
	"large":     largeCases,
}

// Get returns the target with the given category and name.
func Get(category, name string) (*Target, bool) {
	for i := range All[category] {
		if All[category][i].Name == name {
			return &All[category][i], true
		}
	}
	return nil, false
}
