package scene

// LODs returns the base object's LOD slots in rank order.
func (d *Document) LODs(base *Object) []LodLink {
	return base.LODs
}

// AppendLOD adds a slot referring to lod at the end of base's LOD list and
// returns its index.
func (d *Document) AppendLOD(base, lod *Object) int {
	base.LODs = append(base.LODs, LodLink{ObjectID: lod.ID})
	return len(base.LODs) - 1
}

// PopLOD removes the last slot of base's LOD list.
func (d *Document) PopLOD(base *Object) (LodLink, bool) {
	n := len(base.LODs)
	if n == 0 {
		return LodLink{}, false
	}
	last := base.LODs[n-1]
	base.LODs = base.LODs[:n-1]
	return last, true
}

// ResolveLOD dereferences a slot. A slot whose object was deleted resolves
// to (nil, false).
func (d *Document) ResolveLOD(link LodLink) (*Object, bool) {
	if link.ObjectID == "" {
		return nil, false
	}
	return d.Lookup(link.ObjectID)
}

// LODOwner returns the base object whose LOD list references id.
func (d *Document) LODOwner(id string) (*Object, bool) {
	for _, o := range d.objects {
		for _, l := range o.LODs {
			if l.ObjectID == id {
				return o, true
			}
		}
	}
	return nil, false
}

// IsLODObject reports whether id is referenced by any base object's LOD list.
func (d *Document) IsLODObject(id string) bool {
	_, ok := d.LODOwner(id)
	return ok
}
