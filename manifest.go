// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/base64"

// createProcessManifestResourceID is the resource name ID the loader
// uses for the manifest it associates with CreateProcess.
const createProcessManifestResourceID = 1

// findManifest implements §4.F: locate the RT_MANIFEST resource with the
// create-process manifest ID and return its bytes base-64-encoded
// without line breaks. Absence of a manifest is not an error — callers
// get back ("", false).
func (img *OpenedImage) findManifest(resourceDirRVA uint32) (string, bool) {
	for _, leaf := range img.findResources(resourceDirRVA) {
		if leaf.typeID != RTManifest || leaf.nameID != createProcessManifestResourceID {
			continue
		}
		b, err := img.ReadBytes(leaf.data.OffsetToData, leaf.data.Size)
		if err != nil {
			continue
		}
		return base64.StdEncoding.EncodeToString(b), true
	}
	return "", false
}
