// seehuhn.de/go/pdfedit - a library for editing PDF files
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
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

package pagetree

import (
	"golang.org/x/exp/slices"

	pdf "seehuhn.de/go/pdfedit"
)

// maxDegree is the maximal number of children of a node in a balanced
// page tree.
const maxDegree = 16

type nodeInfo struct {
	obj       *pdf.Object // a /Page or /Pages object
	pageCount int
	children  []*nodeInfo
	page      *Page // set for leaves
}

// Balance rewrites the page tree so that no node has more than 16
// children and all pages have the same depth.  For large documents this
// allows viewers to locate pages without reading the complete tree.
//
// A balanced tree is not flat, so the next operation which inserts,
// removes or moves pages flattens the tree again.
func (c *Collection) Balance() error {
	err := c.FlattenStructure()
	if err != nil {
		return err
	}
	if len(c.pages) <= maxDegree {
		return nil
	}
	err = c.root.AssertMutable()
	if err != nil {
		return err
	}
	for _, p := range c.pages {
		err = p.obj.AssertMutable()
		if err != nil {
			return err
		}
	}

	list := c.root.Owner()
	nodes := make([]*nodeInfo, len(c.pages))
	for i, p := range c.pages {
		nodes[i] = &nodeInfo{obj: p.obj, pageCount: 1, page: p}
	}
	for len(nodes) > maxDegree {
		nodes = mergeLevel(list, nodes)
	}

	rootDict := c.rootDict()
	rootRef := c.root.Reference()
	kids := make([]pdf.Value, len(nodes))
	for i, node := range nodes {
		node.obj.Value().(*pdf.Dict).Set("Parent", rootRef)
		kids[i] = node.obj.Reference()
	}
	err = rootDict.Set("Kids", pdf.NewArray(kids...))
	if err != nil {
		return err
	}
	for _, node := range nodes {
		node.setAncestors([]*pdf.Dict{rootDict})
	}
	c.kids = nil
	c.log.Debug("page tree balanced", "pages", len(c.pages))
	return nil
}

// mergeLevel groups consecutive nodes into new intermediate nodes with at
// most maxDegree children each.  The group sizes differ by at most one.
func mergeLevel(list *pdf.ObjectList, nodes []*nodeInfo) []*nodeInfo {
	numGroups := (len(nodes) + maxDegree - 1) / maxDegree
	res := make([]*nodeInfo, 0, numGroups)
	start := 0
	for g := 0; g < numGroups; g++ {
		end := start + (len(nodes)-start)/(numGroups-g)
		res = append(res, mergeNodes(list, nodes[start:end]))
		start = end
	}
	return res
}

// mergeNodes collapses the given nodes into a new intermediate node.
func mergeNodes(list *pdf.ObjectList, childNodes []*nodeInfo) *nodeInfo {
	parent := list.CreateDict("Pages")
	parentRef := parent.Reference()

	kids := make([]pdf.Value, len(childNodes))
	pageCount := 0
	for i, node := range childNodes {
		node.obj.Value().(*pdf.Dict).Set("Parent", parentRef)
		kids[i] = node.obj.Reference()
		pageCount += node.pageCount
	}

	dict := parent.Value().(*pdf.Dict)
	dict.Set("Kids", pdf.NewArray(kids...))
	dict.Set("Count", pdf.Integer(pageCount))

	return &nodeInfo{
		obj:       parent,
		pageCount: pageCount,
		children:  slices.Clone(childNodes),
	}
}

func (node *nodeInfo) setAncestors(ancestors []*pdf.Dict) {
	if node.page != nil {
		node.page.ancestors = ancestors
		return
	}
	inner := append(slices.Clone(ancestors), node.obj.Value().(*pdf.Dict))
	for _, child := range node.children {
		child.setAncestors(inner)
	}
}
