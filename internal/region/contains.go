/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package region

// ContainsRegion reports whether region lies inside container.
//
// The parent chain answers this for the primary tree. A handler body has one
// parent but may be guarded by several tries, so when the chain runs out and
// the region sits inside a handler body, the container is searched through
// the handler side table as well.
func (self *Tree) ContainsRegion(container Container, region Region) bool {
    if container == region {
        return true
    }

    /* nothing to look for */
    if region == nil {
        return false
    }

    /* walk up the primary tree */
    inh := false
    for p := region; p != nil; p = p.Parent() {
        if p == container {
            return true
        } else if isHandlerRegion(p) {
            inh = true
        }
    }

    /* only handler bodies have other ancestors */
    if !inh {
        return false
    } else {
        return self.searchRegion(container, region, make(map[Region]bool))
    }
}

// searchRegion descends from c through sub-containers and through the
// handler and finally bodies of every try-tagged region on the way.
func (self *Tree) searchRegion(c Container, region Region, vis map[Region]bool) bool {
    if c == region {
        return true
    }

    /* blocks contain no regions */
    _, r := dispatch(c)
    if r == nil || vis[r] {
        return false
    }

    /* handler bodies of this try */
    vis[r] = true
    for _, h := range self.HandlerRegions(r) {
        if self.searchRegion(h, region, vis) {
            return true
        }
    }

    /* ordinary sub-containers */
    for _, v := range r.SubBlocks() {
        if self.searchRegion(v, region, vis) {
            return true
        }
    }
    return false
}
